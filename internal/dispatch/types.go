package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// every attempt/key failed - callers surface this as "try again later"
	ErrExhaustedRetries = errors.New("all generation attempts exhausted")

	// non-retryable 4xx from the provider, e.g. a bad request body
	ErrUpstreamRejected = errors.New("upstream rejected request")
)

// tunes one dispatcher instance
type Options struct {
	// upper bound on attempts, additionally capped by the pool size
	MaxAttempts int

	// per-call HTTP timeout
	RequestTimeout time.Duration
}

// builds a fresh outgoing request for one attempt, so request bodies can
// be re-sent safely on retry
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// fills in zero-value options
func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}

	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}

	return o
}
