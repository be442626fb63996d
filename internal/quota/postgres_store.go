package quota

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on the user_quotas table
type PostgresStore struct {
	db *pgxpool.Pool
}

// creates a Postgres-backed quota store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*Quota, error) {
	q, err := s.scanRow(s.db.QueryRow(ctx, queryGetQuota, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	return q, err
}

func (s *PostgresStore) Create(ctx context.Context, quota *Quota) (*Quota, error) {
	q, err := s.scanRow(s.db.QueryRow(ctx, queryCreateQuota,
		quota.UserID,
		quota.PlanType,
		quota.MonthlyLimit,
		quota.CurrentUsage,
		quota.ResetDate,
	))

	// conflict means another request created the row first - read it back
	if errors.Is(err, pgx.ErrNoRows) {
		return s.Get(ctx, quota.UserID)
	}

	return q, err
}

func (s *PostgresStore) ResetIfDue(ctx context.Context, userID string, now, nextReset time.Time) (*Quota, error) {
	q, err := s.scanRow(s.db.QueryRow(ctx, queryResetQuota, userID, nextReset, now))

	// no row matched: either missing, or a concurrent request already
	// reset it - the conditional guarantees at most one reset per rollover
	if errors.Is(err, pgx.ErrNoRows) {
		return s.Get(ctx, userID)
	}

	return q, err
}

func (s *PostgresStore) Increment(ctx context.Context, userID string) (*Quota, error) {
	q, err := s.scanRow(s.db.QueryRow(ctx, queryIncrementUsage, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	return q, err
}

func (s *PostgresStore) Decrement(ctx context.Context, userID string) (*Quota, error) {
	q, err := s.scanRow(s.db.QueryRow(ctx, queryDecrementUsage, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	return q, err
}

func (s *PostgresStore) scanRow(row pgx.Row) (*Quota, error) {
	var q Quota

	err := row.Scan(
		&q.UserID,
		&q.PlanType,
		&q.MonthlyLimit,
		&q.CurrentUsage,
		&q.ResetDate,
		&q.CreatedAt,
		&q.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return &q, nil
}
