package dispatch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/melodygen/server/internal/keypool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGet(url string) RequestBuilder {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDo_Success(t *testing.T) {
	var gotAuth atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"ok":true}`) //nolint:errcheck
	}))
	defer srv.Close()

	pool := keypool.New([]string{"sk-test"}, keypool.Options{})
	d := New(pool, Options{MaxAttempts: 3, RequestTimeout: 5 * time.Second})

	resp, err := d.Do(context.Background(), buildGet(srv.URL))

	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer sk-test", gotAuth.Load())

	stats := pool.Stats()[0]
	assert.Equal(t, 1, stats.UsageCount)
	assert.Equal(t, 1, stats.SuccessCount)
}

func TestDo_RotatesOn429(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pool := keypool.New([]string{"sk-a", "sk-b"}, keypool.Options{})
	d := New(pool, Options{MaxAttempts: 3, RequestTimeout: 5 * time.Second})

	resp, err := d.Do(context.Background(), buildGet(srv.URL))

	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck

	assert.Equal(t, int32(2), calls.Load(), "expected retry after 429")

	// the rate-limited key is benched, the other carried the success
	var blocked, succeeded int
	for _, s := range pool.Stats() {
		if s.Blocked {
			blocked++
		}
		succeeded += s.SuccessCount
	}
	assert.Equal(t, 1, blocked)
	assert.Equal(t, 1, succeeded)
}

func TestDo_RotatesOn500(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pool := keypool.New([]string{"sk-a", "sk-b"}, keypool.Options{})
	d := New(pool, Options{MaxAttempts: 3, RequestTimeout: 5 * time.Second})

	resp, err := d.Do(context.Background(), buildGet(srv.URL))

	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_NonRetryable4xx(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"bad prompt"}`) //nolint:errcheck
	}))
	defer srv.Close()

	pool := keypool.New([]string{"sk-a", "sk-b"}, keypool.Options{})
	d := New(pool, Options{MaxAttempts: 3, RequestTimeout: 5 * time.Second})

	_, err := d.Do(context.Background(), buildGet(srv.URL))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Contains(t, err.Error(), "bad prompt")
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")

	// the serving key spent a call and stays in rotation
	var used, blocked int
	for _, s := range pool.Stats() {
		used += s.UsageCount
		if s.Blocked {
			blocked++
		}
	}
	assert.Equal(t, 1, used, "rejection still counts against the key's window")
	assert.Equal(t, 0, blocked, "rejection must not bench the key")
	assert.False(t, pool.Stats()[0].LastUsedAt.IsZero())
}

func TestDo_ExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pool := keypool.New([]string{"sk-a", "sk-b"}, keypool.Options{})
	d := New(pool, Options{MaxAttempts: 5, RequestTimeout: 5 * time.Second})

	_, err := d.Do(context.Background(), buildGet(srv.URL))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Contains(t, err.Error(), "503")
}

func TestDo_EmptyPool(t *testing.T) {
	pool := keypool.New(nil, keypool.Options{})
	d := New(pool, Options{})

	_, err := d.Do(context.Background(), buildGet("http://localhost:0"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.ErrorIs(t, err, keypool.ErrExhausted)
}

func TestDo_AttemptsBoundedByPoolSize(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pool := keypool.New([]string{"sk-only"}, keypool.Options{})
	d := New(pool, Options{MaxAttempts: 5, RequestTimeout: 5 * time.Second})

	_, err := d.Do(context.Background(), buildGet(srv.URL))

	require.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, int32(1), calls.Load(), "attempts are capped by pool size")
}
