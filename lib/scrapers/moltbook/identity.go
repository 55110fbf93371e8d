package moltbook

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"
)

// only the first 80 characters of content feed the post identity, so
// trailing-content drift from partial renders doesn't change the id
const identityContentPrefix = 80

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func identityHash(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// PostID derives the stable content-addressed identifier of a post. A
// missing timestamp always contributes the empty string, never a
// capture-time fallback: hashing "now" would give every re-scrape of
// the same unparseable-age post a fresh id and defeat dedup.
func PostID(author, community string, timestamp *time.Time, title, content, url string) string {
	ts := ""
	if timestamp != nil {
		ts = timestamp.UTC().Format(time.RFC3339)
	}
	return identityHash(author, community, ts, title, truncateRunes(content, identityContentPrefix), url)
}

// CommentID hashes the 1-based position in the thread along with the
// visible fields: comments are append-only observations, two identical
// comments at different positions are two observations.
func CommentID(author, content string, position int) string {
	return identityHash(author, content, strconv.Itoa(position))
}
