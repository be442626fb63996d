package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(at time.Time) (*Ledger, *MemoryStore) {
	store := NewMemoryStore()
	ledger := NewLedger(store)
	ledger.now = func() time.Time { return at }

	return ledger, store
}

func TestCheckAndReserve_LazilyCreatesFreeQuota(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(now)

	q, err := ledger.CheckAndReserve(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, PlanFree, q.PlanType)
	assert.Equal(t, DefaultFreeLimit, q.MonthlyLimit)
	assert.Equal(t, 0, q.CurrentUsage)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), q.ResetDate)
}

func TestCheckAndReserve_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(now)

	_, err := ledger.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, ledger.CommitUsage(ctx, "user-1"))

	// free plan limit is 1, so the second request is gated
	_, err = ledger.CheckAndReserve(ctx, "user-1")

	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestCheckAndReserve_DoesNotCharge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(now)

	// reserve twice without committing - usage stays at zero, so a failed
	// upstream call never costs the user anything
	_, err := ledger.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	_, err = ledger.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)

	q, err := ledger.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, q.CurrentUsage)
}

func TestCommitThenReserve_NeverExceedsLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, store := newTestLedger(now)

	_, err := store.Create(ctx, &Quota{
		UserID:       "user-1",
		PlanType:     PlanPro,
		MonthlyLimit: DefaultProLimit,
		ResetDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	committed := 0
	for i := 0; i < DefaultProLimit+10; i++ {
		if _, err := ledger.CheckAndReserve(ctx, "user-1"); err != nil {
			assert.ErrorIs(t, err, ErrQuotaExceeded)
			continue
		}
		require.NoError(t, ledger.CommitUsage(ctx, "user-1"))
		committed++
	}

	q, err := ledger.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultProLimit, committed)
	assert.LessOrEqual(t, q.CurrentUsage, q.MonthlyLimit)
}

func TestLimitFollowsPlan(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, store := newTestLedger(now)

	// a billing upgrade flips plan_type but may leave the old limit behind
	_, err := store.Create(ctx, &Quota{
		UserID:       "user-1",
		PlanType:     PlanPro,
		MonthlyLimit: DefaultFreeLimit,
		CurrentUsage: DefaultFreeLimit,
		ResetDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	q, err := ledger.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultProLimit, q.MonthlyLimit, "the plan decides the limit")

	// usage past the stale limit still has pro headroom
	_, err = ledger.CheckAndReserve(ctx, "user-1")
	assert.NoError(t, err)
}

func TestRevertUsage_FlooredAtZero(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(now)

	_, err := ledger.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)

	// revert without any committed usage
	require.NoError(t, ledger.RevertUsage(ctx, "user-1"))
	require.NoError(t, ledger.RevertUsage(ctx, "user-1"))

	q, err := ledger.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, q.CurrentUsage)
}

func TestRollover_ResetsOnceAndAdvancesResetDate(t *testing.T) {
	ctx := context.Background()
	june := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(june)

	_, err := ledger.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, ledger.CommitUsage(ctx, "user-1"))

	// move past the reset date
	july := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return july }

	q, err := ledger.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, q.CurrentUsage, "usage resets on rollover")
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), q.ResetDate)

	// committing after the reset must not trigger a second reset
	require.NoError(t, ledger.CommitUsage(ctx, "user-1"))

	q, err = ledger.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, q.CurrentUsage, "reset happens exactly once per rollover")
}

func TestRollover_DecemberWrapsToJanuary(t *testing.T) {
	assert.Equal(t,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		firstOfNextMonth(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)),
	)
}

func TestCommitUsage_UnknownUser(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(time.Now())

	err := ledger.CommitUsage(ctx, "nobody")

	assert.Error(t, err)
}
