package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"codeberg.org/melodygen/server/internal/keypool"
	"codeberg.org/melodygen/server/internal/logger"
)

// shared transport for upstream calls
var upstreamTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// performs one logical upstream call with automatic key failover.
// 429 and 5xx responses bench the key and move to the next attempt;
// other 4xx responses fail immediately without retry.
type Dispatcher struct {
	pool   *keypool.Pool
	client *http.Client
	opts   Options
}

// creates a dispatcher over a key pool
func New(pool *keypool.Pool, opts Options) *Dispatcher {
	opts = opts.withDefaults()

	return &Dispatcher{
		pool: pool,
		opts: opts,
		client: &http.Client{
			Timeout:   opts.RequestTimeout,
			Transport: upstreamTransport,
		},
	}
}

// issues the request built by build, attaching a pool credential as the
// bearer token. The caller owns the returned response body. Attempts are
// sequential, never parallel, and bounded by MaxAttempts and pool size.
func (d *Dispatcher) Do(ctx context.Context, build RequestBuilder) (*http.Response, error) {
	attempts := d.opts.MaxAttempts
	if n := d.pool.Len(); n > 0 && n < attempts {
		attempts = n
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		lease, err := d.pool.Acquire()
		if err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrExhaustedRetries, lastErr)
			}
			return nil, fmt.Errorf("%w: %w", ErrExhaustedRetries, err)
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+lease.Secret)

		resp, err := d.client.Do(req)
		if err != nil {
			d.pool.RecordOutcome(lease.ID, false)
			lastErr = err

			logger.Warn("upstream call failed, rotating key",
				"key_id", lease.ID,
				"attempt", attempt+1,
				"error", err,
			)

			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			body := readSnippet(resp.Body)
			resp.Body.Close() //nolint:errcheck

			d.pool.RecordOutcome(lease.ID, false)
			lastErr = fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, body)

			logger.Warn("upstream throttled or errored, rotating key",
				"key_id", lease.ID,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)

			continue
		}

		if resp.StatusCode >= 400 {
			body := readSnippet(resp.Body)
			resp.Body.Close() //nolint:errcheck

			// the credential worked, the request itself was bad - the key
			// still spent a call and must not be benched
			d.pool.RecordOutcome(lease.ID, true)

			return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamRejected, resp.StatusCode, body)
		}

		d.pool.RecordOutcome(lease.ID, true)

		return resp, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrExhaustedRetries, lastErr)
}

// reads a short error snippet from a response body
func readSnippet(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}

	return string(body)
}
