package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// a session call with a dead caller context must fail with the context
// error before touching the browser
func TestSessionHonorsCancelledContext(t *testing.T) {
	session := &ChromeSession{tab: context.Background()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, session.Open(ctx, "https://example.com"), context.Canceled)

	_, err := session.HTML(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.ErrorIs(t, session.WaitVisible(ctx, "div", time.Second), context.Canceled)

	// Click folds every probe failure into its non-fatal error
	require.ErrorIs(t, session.Click(ctx, "button"), ErrControlUnavailable)
}

func TestSessionHonorsExpiredDeadline(t *testing.T) {
	session := &ChromeSession{tab: context.Background()}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	require.ErrorIs(t, session.Open(ctx, "https://example.com"), context.DeadlineExceeded)
}
