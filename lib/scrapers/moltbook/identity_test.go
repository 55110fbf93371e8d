package moltbook

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostIDDeterministic(t *testing.T) {
	ts := time.Date(2025, time.February, 1, 10, 30, 0, 0, time.UTC)

	a := PostID("alice", "gaming", &ts, "title", "content", "https://example.com/post/1")
	b := PostID("alice", "gaming", &ts, "title", "content", "https://example.com/post/1")
	require.Equal(t, a, b)
	require.Len(t, a, 16)

	require.NotEqual(t, a, PostID("bob", "gaming", &ts, "title", "content", "https://example.com/post/1"))
	require.NotEqual(t, a, PostID("alice", "gaming", nil, "title", "content", "https://example.com/post/1"))
}

func TestPostIDContentTruncation(t *testing.T) {
	prefix := strings.Repeat("x", 80)

	a := PostID("alice", "", nil, "title", prefix+"tail one", "url")
	b := PostID("alice", "", nil, "title", prefix+"completely different tail", "url")
	require.Equal(t, a, b)

	c := PostID("alice", "", nil, "title", "y"+prefix, "url")
	require.NotEqual(t, a, c)
}

func TestPostIDNilTimestampStable(t *testing.T) {
	// a missing timestamp must hash the same across runs, it must not
	// fall back to capture time
	a := PostID("alice", "", nil, "title", "content", "url")
	time.Sleep(time.Millisecond * 5)
	b := PostID("alice", "", nil, "title", "content", "url")
	require.Equal(t, a, b)
}

func TestCommentIDPositionDistinct(t *testing.T) {
	a := CommentID("bob", "same words", 1)
	b := CommentID("bob", "same words", 2)
	require.NotEqual(t, a, b)
	require.Equal(t, a, CommentID("bob", "same words", 1))
}
