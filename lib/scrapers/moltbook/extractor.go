package moltbook

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"moltbook-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const DefaultCardSelector = "div.animate-fadeIn"

// Extractor turns the rendered feed markup into raw post records. Every
// per-field lookup degrades to an empty value, a malformed card must
// never abort a pass over the feed.
type Extractor struct {
	BaseURL      *url.URL
	CardSelector string
}

func NewExtractor(baseURL *url.URL, cardSelector string) Extractor {
	if cardSelector == "" {
		cardSelector = DefaultCardSelector
	}
	return Extractor{BaseURL: baseURL, CardSelector: cardSelector}
}

// ExtractVisible returns one record per feed card currently in the
// tree. No cards means "feed not ready" or "shuffle exhausted", the
// caller decides, so an empty slice is not an error.
func (e Extractor) ExtractVisible(ctx context.Context, markup string) []RawPostRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse feed markup", "err", err)
		return nil
	}

	var records []RawPostRecord
	doc.Find(e.CardSelector).Each(func(_ int, card *goquery.Selection) {
		record := RawPostRecord{
			Title:     htmlutil.Clean(card.Find("h3").First().Text()),
			Snippet:   htmlutil.Clean(card.Find("p").First().Text()),
			DetailURL: e.extractDetailURL(card),
		}
		record.Author, record.Community = extractAuthorCommunity(card)
		record.AgeNumber, record.AgeLetter = extractRelativeAge(card)
		records = append(records, record)
	})
	return records
}

// detail links are tried in priority order: heading-scoped, then any
// matching link, then an ancestor anchor
func (e Extractor) extractDetailURL(card *goquery.Selection) string {
	href, ok := card.Find(`h3 a[href*="/post/"]`).First().Attr("href")
	if !ok {
		href, ok = card.Find(`a[href*="/post/"]`).First().Attr("href")
	}
	if !ok {
		parentHref, parentOk := card.Closest("a[href]").Attr("href")
		if parentOk && strings.Contains(parentHref, "/post/") {
			href, ok = parentHref, true
		}
	}
	if !ok {
		return ""
	}
	return e.resolve(href)
}

func (e Extractor) resolve(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if e.BaseURL == nil {
		return parsed.String()
	}
	return e.BaseURL.ResolveReference(parsed).String()
}

// the metadata sub-block labels its links: first is the community tag,
// second is the author, both may be missing
func extractAuthorCommunity(card *goquery.Selection) (author, community string) {
	meta := card.Find("div.flex-1.min-w-0").First()
	if meta.Length() == 0 {
		return "", ""
	}

	var links []string
	meta.Find("a").Each(func(_ int, a *goquery.Selection) {
		links = append(links, htmlutil.Clean(a.Text()))
	})
	switch len(links) {
	case 0:
	case 1:
		if strings.HasPrefix(links[0], "u/") {
			author = strings.TrimPrefix(links[0], "u/")
		} else {
			community = links[0]
		}
	default:
		community = links[0]
		author = strings.TrimPrefix(links[1], "u/")
	}

	if author == "" {
		// some renders put the username in a plain span instead
		meta.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
			text := htmlutil.Clean(span.Text())
			if strings.Contains(text, "u/") {
				author = strings.TrimPrefix(text, "u/")
				return false
			}
			return true
		})
	}
	return author, community
}

func extractRelativeAge(card *goquery.Selection) (number, letter string) {
	meta := card.Find("div.flex-1.min-w-0").First()
	if meta.Length() == 0 {
		return "", ""
	}

	meta.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := htmlutil.Clean(span.Text())
		if !strings.Contains(strings.ToLower(text), "ago") {
			return true
		}
		token := strings.SplitN(text, " ", 2)[0]
		number, letter = splitDigitsLetters(token)
		return false
	})
	return number, letter
}

func splitDigitsLetters(token string) (digits, letters string) {
	var d, l strings.Builder
	for _, c := range token {
		switch {
		case c >= '0' && c <= '9':
			d.WriteRune(c)
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			l.WriteRune(c)
		}
	}
	return d.String(), l.String()
}

var hashtagRegex = regexp.MustCompile(`#(\w+)`)
var mentionRegex = regexp.MustCompile(`@(\w+)`)

func ExtractHashtags(text string) []string {
	var tags []string
	for _, m := range hashtagRegex.FindAllStringSubmatch(text, -1) {
		tags = append(tags, m[1])
	}
	return tags
}

func ExtractMentions(text string) []string {
	var mentions []string
	for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
		mentions = append(mentions, m[1])
	}
	return mentions
}
