package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"moltbook-scraper/lib/configutil"
	"moltbook-scraper/lib/fetch"
	"moltbook-scraper/lib/osutil"
	"moltbook-scraper/lib/poststore"
	"moltbook-scraper/lib/poststore/db"
	"moltbook-scraper/lib/render"
	"moltbook-scraper/lib/scrapers/moltbook"
	"moltbook-scraper/lib/sqliteutil"
	"moltbook-scraper/lib/telemetry"

	cbackoff "github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
)

type Config struct {
	BaseURL           string  `json:"base_url"`
	UserAgent         string  `json:"user_agent"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

var (
	crawlDb       *string
	crawlShuffles *int
	crawlPosts    *int
	crawlDelay    *time.Duration
	crawlHeadless *bool
)

func init() {
	crawlDb = crawlCmd.Flags().String("db", "moltbook.db", "The database to write scraped posts to.")
	crawlShuffles = crawlCmd.Flags().Int("max-shuffles", 5, "How many shuffle iterations to run.")
	crawlPosts = crawlCmd.Flags().Int("max-posts", 20, "Stop once this many posts have been collected.")
	crawlDelay = crawlCmd.Flags().Duration("delay", time.Second*2, "Base delay between detail page fetches.")
	crawlHeadless = crawlCmd.Flags().Bool("headless", true, "Run the browser headless.")
	rootCmd.AddCommand(crawlCmd)
}

func readCrawlConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		osutil.Fatal("failed to read config", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.moltbook.com"
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 2
	}
	return cfg
}

// seam for tests, the real thing needs a chrome install
var newSession = func(ctx context.Context, opts render.ChromeOptions) (render.Session, error) {
	return render.NewChromeSession(ctx, opts)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--db <path/to/output.db>]",
	Short: "Crawls the shuffle feed and writes posts and comments to a database.",
	Run: func(cmd *cobra.Command, args []string) {
		// the crawl body owns every resource behind defers, so it has to
		// return before anything calls os.Exit: exiting inside it would
		// leak the browser process and the db handle
		err := runCrawl(cmd.Context())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Warn("crawl interrupted, partial results were saved")
				os.Exit(130)
			}
			osutil.Fatal("crawl failed", err)
		}
	},
}

func runCrawl(ctx context.Context) error {
	telemetry.InstrumentPerfStats(ctx)
	cfg := readCrawlConfig()

	out, err := sqliteutil.OpenDB(db.Schema, *crawlDb)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer out.Close()
	store := poststore.NewStore(out)

	session, err := newSession(ctx, render.ChromeOptions{
		Headless:  *crawlHeadless,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer session.Close()

	client, err := fetch.NewClient(fetch.Options{
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("create fetch client: %w", err)
	}

	opts := moltbook.DefaultCrawlerOptions()
	opts.BaseURL = cfg.BaseURL
	opts.MaxShuffles = *crawlShuffles
	opts.MaxPosts = *crawlPosts
	opts.RequestDelay = *crawlDelay

	crawler, err := moltbook.NewCrawler(session, client, opts)
	if err != nil {
		return fmt.Errorf("create crawler: %w", err)
	}

	t1 := time.Now()
	posts, runErr := crawler.Run(ctx)
	slog.Info("crawling time", "seconds", time.Since(t1).Seconds(), "posts", len(posts))

	// whatever was accumulated gets flushed, cancellation included
	err = flushPosts(store, posts)
	if err != nil {
		return fmt.Errorf("write posts to db: %w", err)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	printStats(stats)

	return runErr
}

// flushPosts must survive the signal that cancelled the crawl, so it
// runs on a fresh context with a couple of quick retries.
func flushPosts(store poststore.Store, posts []moltbook.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	policy := cbackoff.WithContext(
		cbackoff.WithMaxRetries(cbackoff.NewConstantBackOff(time.Second), 2),
		ctx,
	)
	return cbackoff.Retry(func() error {
		return store.PutPosts(ctx, posts)
	}, policy)
}
