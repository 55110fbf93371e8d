package moltbook

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"moltbook-scraper/lib/fetch"
	"moltbook-scraper/lib/htmlutil"
	"moltbook-scraper/lib/reltime"

	"github.com/PuerkitoBio/goquery"
)

// Detail is everything a post's own page contributes on top of its
// feed card.
type Detail struct {
	Comments             []Comment
	ReportedCommentCount int64
	Likes                int64
	Type                 PostType
	MediaURLs            []string
}

type DetailFetcher struct {
	fetch *fetch.Client
	now   func() time.Time
}

func NewDetailFetcher(client *fetch.Client) DetailFetcher {
	return DetailFetcher{fetch: client, now: time.Now}
}

// FetchDetail retrieves and parses a post's detail page. ok is false
// when the fetch yielded no content (rate-limit budget exhausted,
// non-retryable status, or duplicate URL), which is not an error.
func (f DetailFetcher) FetchDetail(ctx context.Context, url string) (Detail, bool) {
	body, err := f.fetch.Fetch(ctx, url)
	if err != nil || len(body) == 0 {
		return Detail{}, false
	}
	return ParseDetail(ctx, body, f.now()), true
}

var reportedCountRegex = regexp.MustCompile(`\((\d+)\)`)
var commentAgeRegex = regexp.MustCompile(`\d+[smhdwy]`)
var digitsRegex = regexp.MustCompile(`\d+`)

func ParseDetail(ctx context.Context, markup []byte, now time.Time) Detail {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(markup))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse detail markup", "err", err)
		return Detail{}
	}

	detail := Detail{
		Likes:     parseLikes(doc),
		Type:      detectPostType(doc),
		MediaURLs: extractMediaURLs(doc),
	}

	// the thread header reports the site's total, which can exceed
	// what is actually rendered on the page
	header := htmlutil.Clean(doc.Find("h2").First().Text())
	if m := reportedCountRegex.FindStringSubmatch(header); len(m) >= 2 {
		detail.ReportedCommentCount, _ = strconv.ParseInt(m[1], 10, 64)
	}

	doc.Find("div.rounded-lg.p-4").Each(func(i int, block *goquery.Selection) {
		comment, ok := parseCommentBlock(block, i+1, now)
		if !ok {
			return
		}
		detail.Comments = append(detail.Comments, comment)
	})

	return detail
}

// the first purely-numeric bold element is the like counter
func parseLikes(doc *goquery.Document) int64 {
	likes := int64(0)
	doc.Find("span.font-bold").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := htmlutil.Clean(span.Text())
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return true
		}
		likes = n
		return false
	})
	return likes
}

func detectPostType(doc *goquery.Document) PostType {
	if doc.Find("img").Length() > 0 {
		return PostTypeImage
	}
	if doc.Find("video").Length() > 0 {
		return PostTypeVideo
	}
	return PostTypeText
}

func extractMediaURLs(doc *goquery.Document) []string {
	var urls []string
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		urls = append(urls, img.AttrOr("src", ""))
	})
	doc.Find("video source[src]").Each(func(_ int, src *goquery.Selection) {
		urls = append(urls, src.AttrOr("src", ""))
	})
	return urls
}

func parseCommentBlock(block *goquery.Selection, position int, now time.Time) (Comment, bool) {
	author := htmlutil.Clean(block.Find(`a[href^="/u/"]`).First().Text())
	author = strings.TrimPrefix(author, "u/")

	var contentParts []string
	block.Find("div.prose p, div.text-sm p").Each(func(_ int, p *goquery.Selection) {
		text := htmlutil.Clean(p.Text())
		if text != "" {
			contentParts = append(contentParts, text)
		}
	})
	content := strings.Join(contentParts, "\n")

	// noise filter: a block with neither author nor content is not a comment
	if author == "" && content == "" {
		return Comment{}, false
	}
	if author == "" {
		author = "Unknown"
	}

	comment := Comment{
		Author:  author,
		Content: content,
		Likes:   LikesUnknown,
	}

	block.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := htmlutil.Clean(span.Text())
		if !commentAgeRegex.MatchString(strings.ToLower(text)) {
			return true
		}
		comment.TimestampRaw = text
		comment.Timestamp, comment.TimestampPrecision, _ = reltime.Parse(text, now)
		return false
	})
	if comment.TimestampPrecision == "" {
		comment.TimestampPrecision = reltime.Unknown
	}

	if counter := htmlutil.Clean(block.Find(`span[class*="count"]`).First().Text()); counter != "" {
		if digits := digitsRegex.FindString(counter); digits != "" {
			comment.Likes, _ = strconv.ParseInt(digits, 10, 64)
		}
	}

	comment.ID = CommentID(author, content, position)
	return comment, true
}
