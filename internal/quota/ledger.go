package quota

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// gates and accounts for generation usage against a monthly cap.
// The protocol is optimistic: CheckAndReserve only verifies headroom,
// CommitUsage charges after the upstream accepted the task, and
// RevertUsage compensates when a committed task later fails.
type Ledger struct {
	store Store

	// injectable clock for tests
	now func() time.Time
}

// creates a ledger over a quota store
func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		now:   time.Now,
	}
}

// verifies the user has generation headroom, lazily creating a free-tier
// quota and applying the monthly rollover first. Does not charge usage.
func (l *Ledger) CheckAndReserve(ctx context.Context, userID string) (*Quota, error) {
	q, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if q.Remaining() <= 0 {
		return nil, ErrQuotaExceeded
	}

	return q, nil
}

// charges one generation. Called only after the upstream accepted the
// request and returned a task id - a user must never pay for a
// generation that never started.
func (l *Ledger) CommitUsage(ctx context.Context, userID string) error {
	if _, err := l.store.Increment(ctx, userID); err != nil {
		return fmt.Errorf("failed to commit usage: %w", err)
	}

	return nil
}

// refunds one generation after a committed task failed upstream.
// Floored at zero by the store. Idempotency per task is the caller's
// job via the task record's reverted flag.
func (l *Ledger) RevertUsage(ctx context.Context, userID string) error {
	if _, err := l.store.Decrement(ctx, userID); err != nil {
		return fmt.Errorf("failed to revert usage: %w", err)
	}

	return nil
}

// returns the user's current quota with the rollover applied, without
// gating anything. Backs the usage endpoint.
func (l *Ledger) Usage(ctx context.Context, userID string) (*Quota, error) {
	return l.load(ctx, userID)
}

// loads or lazily creates the quota row and applies the monthly reset
func (l *Ledger) load(ctx context.Context, userID string) (*Quota, error) {
	now := l.now()

	q, err := l.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		q, err = l.store.Create(ctx, &Quota{
			UserID:       userID,
			PlanType:     PlanFree,
			MonthlyLimit: LimitForPlan(PlanFree),
			CurrentUsage: 0,
			ResetDate:    firstOfNextMonth(now),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load quota: %w", err)
	}

	// billing changes plan_type directly; the limit always follows the
	// plan, so a stale stored limit never survives a load
	q.MonthlyLimit = LimitForPlan(q.PlanType)

	if !now.Before(q.ResetDate) {
		q, err = l.store.ResetIfDue(ctx, userID, now, firstOfNextMonth(now))
		if err != nil {
			return nil, fmt.Errorf("failed to reset quota: %w", err)
		}
	}

	return q, nil
}

// monthly allowance for a plan tier
func LimitForPlan(plan string) int {
	switch plan {
	case PlanPro:
		return DefaultProLimit
	default:
		return DefaultFreeLimit
	}
}

// midnight UTC on the 1st of the month after t
func firstOfNextMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
