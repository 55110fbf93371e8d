// Package render abstracts the headless browser session the crawler
// drives. The feed only changes through in-page actions (the shuffle
// control), so plain HTTP is not enough for the feed itself.
package render

import (
	"context"
	"errors"
	"time"
)

// ErrControlUnavailable is returned by Click when the target control is
// missing or disabled. Callers treat it as non-fatal.
var ErrControlUnavailable = errors.New("control missing or disabled")

type Session interface {
	Open(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string) error
	Close() error
}
