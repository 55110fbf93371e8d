package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"moltbook-scraper/lib/backoff"
	"moltbook-scraper/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	cleanup := telemetry.SetupForTesting("test:lib/fetch")
	t.Cleanup(cleanup)

	client, err := NewClient(opts)
	require.NoError(t, err)
	// keep tests fast, backoff sleeps are recorded, not slept
	client.sleep = func(ctx context.Context, d time.Duration) {}
	return client
}

func TestConcurrencyCap(t *testing.T) {
	var inflight, peak int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&inflight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
				break
			}
		}
		time.Sleep(time.Millisecond * 30)
		atomic.AddInt64(&inflight, -1)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, Options{Concurrency: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, err := client.Fetch(context.Background(), fmt.Sprintf("%s/%d", server.URL, i))
			require.NoError(t, err)
			require.Equal(t, []byte("ok"), body)
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestFetchedURLNeverRefetched(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, Options{})

	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, body)
	require.True(t, client.AlreadyFetched(server.URL))

	body, err = client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Nil(t, body)
	require.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestRateLimitBackoffDoubles(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	policy := backoff.Policy{Base: time.Second, Cap: time.Second * 60, MaxAttempts: 5}
	client := newTestClient(t, Options{Policy: policy})

	var sleeps []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) {
		sleeps = append(sleeps, d)
	}

	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Nil(t, body)
	require.Equal(t, int64(5), atomic.LoadInt64(&hits))
	require.Len(t, sleeps, 4)

	// each sleep is base + 10%-30% jitter, bases strictly doubling
	bases := []time.Duration{time.Second, time.Second * 2, time.Second * 4, time.Second * 8}
	for i, base := range bases {
		require.GreaterOrEqual(t, sleeps[i], base+base/10)
		require.LessOrEqual(t, sleeps[i], base+3*base/10)
	}

	require.False(t, client.AlreadyFetched(server.URL))
}

func TestRetryAfterHonored(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, Options{})

	var sleeps []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) {
		sleeps = append(sleeps, d)
	}

	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), body)
	require.Len(t, sleeps, 1)

	wait := time.Second * 3
	require.GreaterOrEqual(t, sleeps[0], wait+wait/10)
	require.LessOrEqual(t, sleeps[0], wait+3*wait/10)
}

func TestNonRetryableStatus(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, Options{})

	body, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Nil(t, body)
	require.Equal(t, int64(1), atomic.LoadInt64(&hits))
}
