package quota

import (
	"context"
	"errors"
	"time"
)

// plan tiers and their monthly generation limits
const (
	PlanFree = "free"
	PlanPro  = "pro"

	DefaultFreeLimit = 1
	DefaultProLimit  = 50
)

var (
	// the user has no generation headroom left this month
	ErrQuotaExceeded = errors.New("monthly generation quota exceeded")

	// no quota row exists for the user yet
	ErrNotFound = errors.New("quota not found")
)

// per-user monthly generation allowance, owned by the durable store
type Quota struct {
	UserID       string    `json:"user_id"`
	PlanType     string    `json:"plan_type"`
	MonthlyLimit int       `json:"monthly_limit"`
	CurrentUsage int       `json:"current_usage"`
	ResetDate    time.Time `json:"reset_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// remaining generations this month
func (q *Quota) Remaining() int {
	remaining := q.MonthlyLimit - q.CurrentUsage
	if remaining < 0 {
		return 0
	}

	return remaining
}

// durable quota storage. Postgres in production, in-memory in tests.
type Store interface {
	// returns ErrNotFound when the user has no quota row
	Get(ctx context.Context, userID string) (*Quota, error)

	// inserts the row if absent and returns the stored row either way
	Create(ctx context.Context, quota *Quota) (*Quota, error)

	// zeroes usage and advances the reset date, but only while the
	// stored reset date is still due - concurrent callers reset at most
	// once per rollover. Returns the current row either way.
	ResetIfDue(ctx context.Context, userID string, now, nextReset time.Time) (*Quota, error)

	// atomically adds one to current usage
	Increment(ctx context.Context, userID string) (*Quota, error)

	// atomically subtracts one from current usage, floored at zero
	Decrement(ctx context.Context, userID string) (*Quota, error)
}
