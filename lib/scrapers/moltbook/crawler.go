package moltbook

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"time"

	"moltbook-scraper/lib/backoff"
	"moltbook-scraper/lib/fetch"
	"moltbook-scraper/lib/render"

	cbackoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/moltbook")

const DefaultShuffleSelector = "button.shuffle"

type CrawlerOptions struct {
	BaseURL         string
	CardSelector    string
	ShuffleSelector string
	// budget of shuffle iterations
	MaxShuffles int
	// hard cap on accumulated posts, the run stops mid-shuffle once hit
	MaxPosts int
	// pacing between detail fetches, jitter is added on top
	RequestDelay time.Duration
	// pause before clicking the shuffle control
	ShuffleWait time.Duration
	// how long to poll for feed cards after navigation
	FeedTimeout  time.Duration
	PollInterval time.Duration
}

func DefaultCrawlerOptions() CrawlerOptions {
	return CrawlerOptions{
		BaseURL:         "https://www.moltbook.com",
		CardSelector:    DefaultCardSelector,
		ShuffleSelector: DefaultShuffleSelector,
		MaxShuffles:     1,
		MaxPosts:        20,
		RequestDelay:    time.Second * 2,
		ShuffleWait:     time.Second * 2,
		FeedTimeout:     time.Second * 10,
		PollInterval:    time.Millisecond * 500,
	}
}

// Crawler is the shuffle-driven crawl loop. All dedup state (seen post
// ids here, fetched URLs inside the fetch client) is scoped to one
// Crawler value, runs are independent of each other.
type Crawler struct {
	session   render.Session
	details   DetailFetcher
	fetch     *fetch.Client
	extractor Extractor
	opts      CrawlerOptions

	seen map[string]struct{}

	// injected in tests
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration)
	shuffleFunc func([]RawPostRecord)
}

func NewCrawler(session render.Session, fetchClient *fetch.Client, opts CrawlerOptions) (*Crawler, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	details := NewDetailFetcher(fetchClient)
	c := &Crawler{
		session:   session,
		details:   details,
		fetch:     fetchClient,
		extractor: NewExtractor(baseURL, opts.CardSelector),
		opts:      opts,
		seen:      map[string]struct{}{},
		now:       time.Now,
		sleep:     sleepContext,
		shuffleFunc: func(records []RawPostRecord) {
			rand.Shuffle(len(records), func(i, j int) {
				records[i], records[j] = records[j], records[i]
			})
		},
	}
	c.details.now = func() time.Time { return c.now() }
	return c, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Run executes the crawl until either budget is exhausted or the
// context is cancelled. On cancellation it returns what was accumulated
// so far together with the context error, so the caller can still
// flush to the store.
func (c *Crawler) Run(ctx context.Context) ([]Post, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	err := c.openFeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}

	var posts []Post
	for shuffle := 0; shuffle < c.opts.MaxShuffles; shuffle++ {
		if ctx.Err() != nil {
			return posts, ctx.Err()
		}

		records := c.waitForCards(ctx)
		if len(records) == 0 {
			slog.WarnContext(ctx, "no posts visible this shuffle",
				"shuffle", shuffle+1, "max_shuffles", c.opts.MaxShuffles)
		}

		// randomizing the processing order avoids always prioritizing
		// the same screen positions under a fixed post budget
		c.shuffleFunc(records)

		for _, record := range records {
			if ctx.Err() != nil {
				return posts, ctx.Err()
			}

			post, ok := c.buildPost(ctx, record)
			if ok {
				posts = append(posts, post)
				if len(posts) >= c.opts.MaxPosts {
					slog.InfoContext(ctx, "post budget reached", "max_posts", c.opts.MaxPosts)
					return posts, nil
				}
			}

			c.sleep(ctx, backoff.Jitter(c.opts.RequestDelay))
		}

		if shuffle == c.opts.MaxShuffles-1 {
			break
		}
		c.clickShuffle(ctx)
	}

	return posts, nil
}

// navigation gets a few attempts with a fixed pause, DNS hiccups on
// fresh sessions are common. failing all of them is fatal to the run.
func (c *Crawler) openFeed(ctx context.Context) error {
	policy := cbackoff.WithContext(
		cbackoff.WithMaxRetries(cbackoff.NewConstantBackOff(time.Second*2), 2),
		ctx,
	)
	return cbackoff.Retry(func() error {
		err := c.session.Open(ctx, c.opts.BaseURL)
		if err != nil {
			slog.WarnContext(ctx, "failed to open feed, retrying", "err", err)
		}
		return err
	}, policy)
}

// waitForCards polls until at least one card extracts or the feed
// timeout passes. Timing out is not an error: extraction simply yields
// nothing and the loop treats it as an empty shuffle. The selector wait
// and the extraction poll share one deadline, together they never
// consume more than FeedTimeout.
func (c *Crawler) waitForCards(ctx context.Context) []RawPostRecord {
	deadline := c.now().Add(c.opts.FeedTimeout)

	err := c.session.WaitVisible(ctx, c.extractor.CardSelector, c.opts.FeedTimeout)
	if err != nil {
		slog.DebugContext(ctx, "feed selector never became visible", "err", err)
	}
	for {
		markup, err := c.session.HTML(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to read rendered page", "err", err)
			return nil
		}
		records := c.extractor.ExtractVisible(ctx, markup)
		if len(records) > 0 {
			return records
		}
		if ctx.Err() != nil || !c.now().Before(deadline) {
			return nil
		}
		c.sleep(ctx, c.opts.PollInterval)
	}
}

// buildPost turns one feed card into a Post, consulting the detail
// page. Any reason to drop the card is logged and yields ok=false,
// never an error: a single bad card must not abort the run.
func (c *Crawler) buildPost(ctx context.Context, record RawPostRecord) (Post, bool) {
	if record.Title == "" && record.Snippet == "" {
		slog.DebugContext(ctx, "dropping card with no title and no content", "url", record.DetailURL)
		return Post{}, false
	}

	// cheap duplicate check before any fetch happens
	if record.DetailURL != "" && c.fetch.AlreadyFetched(record.DetailURL) {
		slog.DebugContext(ctx, "already fetched this shuffle run", "url", record.DetailURL)
		return Post{}, false
	}

	timestamp, precision, raw := record.NormalizeAge(c.now())

	var detail Detail
	hasDetail := false
	if record.DetailURL != "" {
		detail, hasDetail = c.details.FetchDetail(ctx, record.DetailURL)
		if !hasDetail {
			slog.WarnContext(ctx, "detail page yielded no content, skipping post", "url", record.DetailURL)
			return Post{}, false
		}
	}

	author := record.Author
	if author == "" {
		author = "Unknown"
	}

	id := PostID(author, record.Community, timestamp, record.Title, record.Snippet, record.DetailURL)
	if _, dup := c.seen[id]; dup {
		slog.DebugContext(ctx, "duplicate post identity, skipping", "post_id", id)
		return Post{}, false
	}
	c.seen[id] = struct{}{}

	post := Post{
		ID:                 id,
		Author:             author,
		Community:          record.Community,
		Title:              record.Title,
		Content:            record.Snippet,
		Timestamp:          timestamp,
		TimestampPrecision: precision,
		TimestampRaw:       raw,
		Likes:              LikesUnknown,
		Type:               PostTypeText,
		Hashtags:           ExtractHashtags(record.Snippet),
		Mentions:           ExtractMentions(record.Snippet),
		URL:                record.DetailURL,
		ScrapedAt:          c.now(),
	}
	if hasDetail {
		post.Likes = detail.Likes
		post.Comments = detail.Comments
		post.CommentCount = int64(len(detail.Comments))
		post.TotalCommentCount = detail.ReportedCommentCount
		post.Type = detail.Type
		post.MediaURLs = detail.MediaURLs
	}

	return post, true
}

// clickShuffle triggers the next feed randomization. A missing or
// disabled control is non-fatal: the next pass re-sees the same cards
// and dedup filters them out.
func (c *Crawler) clickShuffle(ctx context.Context) {
	c.sleep(ctx, backoff.Jitter(c.opts.ShuffleWait))

	err := c.session.Click(ctx, c.opts.ShuffleSelector)
	if err != nil {
		slog.WarnContext(ctx, "shuffle control unavailable, continuing", "err", err)
	}
}
