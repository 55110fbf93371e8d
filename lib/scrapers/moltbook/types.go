// Package moltbook scrapes posts and comments out of the moltbook feed.
// The feed has no pagination, the only discovery mechanism is a
// site-side "shuffle" that re-randomizes which cards are rendered, so
// the crawler loops render → extract → fetch details → dedupe → shuffle.
package moltbook

import (
	"time"

	"moltbook-scraper/lib/reltime"
)

type PostType string

const (
	PostTypeText  PostType = "text"
	PostTypeImage PostType = "image"
	PostTypeVideo PostType = "video"
)

// LikesUnknown marks a like count that could not be parsed. It is
// distinct from a genuine zero, for posts and comments alike.
const LikesUnknown int64 = -1

type Comment struct {
	ID                 string
	Author             string
	Content            string
	Timestamp          *time.Time
	TimestampPrecision reltime.Precision
	TimestampRaw       string
	Likes              int64
}

type Post struct {
	ID                 string
	Author             string
	Community          string
	Title              string
	Content            string
	Timestamp          *time.Time
	TimestampPrecision reltime.Precision
	TimestampRaw       string
	Likes              int64
	// comments actually parsed off the detail page
	CommentCount int64
	// count the site reports in the thread header
	TotalCommentCount int64
	Comments          []Comment
	Type              PostType
	MediaURLs         []string
	Hashtags          []string
	Mentions          []string
	URL               string
	ScrapedAt         time.Time
}

// RawPostRecord is what a single feed card yields before the detail
// page is consulted. Every field may legitimately be empty, extraction
// never fails on a missing field.
type RawPostRecord struct {
	Title     string
	Snippet   string
	Author    string
	Community string
	// leading digit run and trailing letter run of the "19d ago" span
	AgeNumber string
	AgeLetter string
	DetailURL string
}

// NormalizeAge resolves the card's relative age against now.
func (r RawPostRecord) NormalizeAge(now time.Time) (*time.Time, reltime.Precision, string) {
	return reltime.FromParts(r.AgeNumber, r.AgeLetter, now)
}
