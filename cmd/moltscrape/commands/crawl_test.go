package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"moltbook-scraper/lib/render"
	"moltbook-scraper/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type stubSession struct {
	openErr error
	closed  bool
}

func (s *stubSession) Open(ctx context.Context, url string) error {
	return s.openErr
}

func (s *stubSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (s *stubSession) HTML(ctx context.Context) (string, error) {
	return "<html></html>", nil
}

func (s *stubSession) Click(ctx context.Context, selector string) error {
	return nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}

// a failing crawl must still release the browser session and return the
// error instead of exiting, otherwise the chrome process is orphaned
func TestRunCrawlReleasesSessionOnFailure(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:moltscrape")
	t.Cleanup(cleanup)

	stub := &stubSession{openErr: fmt.Errorf("browser gone")}
	restoreSession := newSession
	newSession = func(ctx context.Context, opts render.ChromeOptions) (render.Session, error) {
		return stub, nil
	}
	t.Cleanup(func() { newSession = restoreSession })

	restoreDb := *crawlDb
	*crawlDb = filepath.Join(t.TempDir(), "test.db")
	t.Cleanup(func() { *crawlDb = restoreDb })

	err := runCrawl(context.Background())
	require.Error(t, err)
	require.True(t, stub.closed)
}
