// Package fetch is the rate-limited HTTP path used for detail pages.
// It bounds concurrent fetches, deduplicates already-fetched URLs for
// the lifetime of a crawl run and retries transient failures with a
// jittered, doubling backoff.
package fetch

import (
	"context"
	"log/slog"
	"net/http/cookiejar"
	"strconv"
	"sync"
	"time"

	"moltbook-scraper/lib/backoff"
	"moltbook-scraper/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	random "github.com/mazen160/go-random"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.8",
	"de-DE,de;q=0.9,en;q=0.7",
}

type Options struct {
	UserAgent string
	// per-request timeout, 30s if unset
	Timeout time.Duration
	// maximum concurrent fetches, 3 if unset
	Concurrency int64
	// steady request rate, unlimited if unset
	RequestsPerSecond float64
	// zero value means backoff.Default()
	Policy backoff.Policy
}

type Client struct {
	http   *resty.Client
	sem    *semaphore.Weighted
	policy backoff.Policy

	mu      sync.Mutex
	fetched map[string]struct{}

	// overridable in tests to observe backoff sleeps
	sleep func(ctx context.Context, d time.Duration)
}

func NewClient(opts Options) (*Client, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 3
	}
	if opts.Policy == (backoff.Policy{}) {
		opts.Policy = backoff.Default()
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 2)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, "fetch/http")

	return &Client{
		http:    client,
		sem:     semaphore.NewWeighted(opts.Concurrency),
		policy:  opts.Policy,
		fetched: map[string]struct{}{},
		sleep:   sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// AlreadyFetched reports whether a URL was successfully fetched earlier
// in this run. The set is one-shot, it never expires within a run.
func (c *Client) AlreadyFetched(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.fetched[url]
	return ok
}

func (c *Client) markFetched(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched[url] = struct{}{}
}

func rotateAcceptLanguage() string {
	i, err := random.IntRange(0, len(acceptLanguages))
	if err != nil {
		return acceptLanguages[0]
	}
	return acceptLanguages[i]
}

// Fetch retrieves a URL's body. A nil body with a nil error means "no
// content": the URL was already fetched this run, returned a
// non-retryable status, or exhausted its retry budget. Only context
// cancellation surfaces as an error.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if c.AlreadyFetched(url) {
		slog.DebugContext(ctx, "url cache hit", "url", url)
		return nil, nil
	}

	err := c.sem.Acquire(ctx, 1)
	if err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	current := c.policy.Base
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		res, err := c.http.R().
			SetContext(ctx).
			SetHeader("accept-language", rotateAcceptLanguage()).
			Get(url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt == c.policy.MaxAttempts {
				break
			}
			slog.WarnContext(ctx, "fetch failed, backing off",
				"url", url, "attempt", attempt, "backoff", current, "err", err)
			c.sleep(ctx, backoff.Jitter(current))
			current = c.policy.Next(current)
			continue
		}

		status := res.StatusCode()
		switch {
		case status >= 200 && status < 300:
			c.markFetched(url)
			return res.Body(), nil

		case status == 429:
			if attempt == c.policy.MaxAttempts {
				break
			}
			wait := current
			if retryAfter := res.Header().Get("Retry-After"); retryAfter != "" {
				secs, err := strconv.ParseInt(retryAfter, 10, 64)
				if err == nil {
					wait = c.policy.Clamp(time.Duration(secs) * time.Second)
				}
			}
			slog.WarnContext(ctx, "rate limited, backing off",
				"url", url, "attempt", attempt, "wait", wait)
			c.sleep(ctx, backoff.Jitter(wait))
			current = c.policy.Next(current)
			continue

		default:
			slog.WarnContext(ctx, "non-retryable status", "url", url, "status", status)
			return nil, nil
		}
	}

	slog.WarnContext(ctx, "retries exhausted", "url", url, "attempts", c.policy.MaxAttempts)
	return nil, nil
}
