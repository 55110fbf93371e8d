package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ChromeOptions struct {
	Headless  bool
	UserAgent string
}

// ChromeSession drives a single headless chrome tab. The tab context is
// derived from the constructor context, so cancelling that context
// tears the browser down on every exit path.
type ChromeSession struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ Session = (*ChromeSession)(nil)

func NewChromeSession(ctx context.Context, opts ChromeOptions) (*ChromeSession, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(1280, 800),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	// launch the browser eagerly so a broken environment fails here,
	// not on the first navigation
	err := chromedp.Run(tab)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &ChromeSession{
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// run executes actions on the tab while honoring the caller's context:
// the tab context identifies the browser target, so cancellation and
// deadlines have to be grafted onto a derived copy of it.
func (s *ChromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx := s.tab
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (s *ChromeSession) Open(ctx context.Context, url string) error {
	return s.run(ctx, 0, chromedp.Navigate(url))
}

func (s *ChromeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var markup string
	err := s.run(ctx, 0, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	return markup, nil
}

func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	// a bounded attribute probe doubles as the existence check
	var disabled string
	var hasDisabled bool
	err := s.run(ctx, time.Second*2, chromedp.AttributeValue(selector, "disabled", &disabled, &hasDisabled, chromedp.ByQuery))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrControlUnavailable, err)
	}
	if hasDisabled {
		return ErrControlUnavailable
	}

	return s.run(ctx, 0, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *ChromeSession) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
