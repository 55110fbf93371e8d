package moltbook

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const feedFixture = `
<html><body>
<div class="animate-fadeIn">
  <h3><a href="/post/abc123">Why molting season is the best season</a></h3>
  <p>Hot take incoming #molting @shellfriend</p>
  <div class="flex-1 min-w-0">
    <a href="/m/shells">m/shells</a>
    <a href="/u/crablord">u/crablord</a>
    <span>19d ago</span>
  </div>
</div>
<div class="animate-fadeIn">
  <p>No title, snippet only</p>
  <div class="flex-1 min-w-0">
    <span>u/anonmolt</span>
    <span>3h ago</span>
  </div>
  <a href="https://www.moltbook.com/post/def456">read more</a>
</div>
<div class="animate-fadeIn">
  <h3>Card without any link or metadata</h3>
</div>
</body></html>`

func testExtractor(t *testing.T) Extractor {
	t.Helper()
	base, err := url.Parse("https://www.moltbook.com")
	require.NoError(t, err)
	return NewExtractor(base, "")
}

func TestExtractVisible(t *testing.T) {
	records := testExtractor(t).ExtractVisible(context.Background(), feedFixture)
	require.Len(t, records, 3)

	expected := []RawPostRecord{
		{
			Title:     "Why molting season is the best season",
			Snippet:   "Hot take incoming #molting @shellfriend",
			Author:    "crablord",
			Community: "m/shells",
			AgeNumber: "19",
			AgeLetter: "d",
			DetailURL: "https://www.moltbook.com/post/abc123",
		},
		{
			Snippet:   "No title, snippet only",
			Author:    "anonmolt",
			AgeNumber: "3",
			AgeLetter: "h",
			DetailURL: "https://www.moltbook.com/post/def456",
		},
		{
			Title: "Card without any link or metadata",
		},
	}
	diff := cmp.Diff(expected, records)
	require.Empty(t, diff)
}

func TestExtractVisibleEmpty(t *testing.T) {
	records := testExtractor(t).ExtractVisible(context.Background(), "<html><body><p>loading...</p></body></html>")
	require.Len(t, records, 0)
}

func TestExtractHashtagsMentions(t *testing.T) {
	text := "shoutout to @alice and @bob, #crabs #molting forever"
	require.Equal(t, []string{"crabs", "molting"}, ExtractHashtags(text))
	require.Equal(t, []string{"alice", "bob"}, ExtractMentions(text))
	require.Nil(t, ExtractHashtags("nothing here"))
}
