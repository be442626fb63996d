package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with in-memory storage, used in tests
type MemoryStore struct {
	mu     sync.Mutex
	quotas map[string]*Quota
}

// creates a new in-memory quota store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotas: make(map[string]*Quota),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.quotas[userID]
	if !exists {
		return nil, ErrNotFound
	}

	return copyQuota(q), nil
}

func (s *MemoryStore) Create(_ context.Context, quota *Quota) (*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.quotas[quota.UserID]; exists {
		return copyQuota(existing), nil
	}

	stored := copyQuota(quota)
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.quotas[quota.UserID] = stored

	return copyQuota(stored), nil
}

func (s *MemoryStore) ResetIfDue(_ context.Context, userID string, now, nextReset time.Time) (*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.quotas[userID]
	if !exists {
		return nil, ErrNotFound
	}

	// guard mirrors the SQL condition: reset only while still due
	if !now.Before(q.ResetDate) {
		q.CurrentUsage = 0
		q.ResetDate = nextReset
		q.UpdatedAt = time.Now()
	}

	return copyQuota(q), nil
}

func (s *MemoryStore) Increment(_ context.Context, userID string) (*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.quotas[userID]
	if !exists {
		return nil, ErrNotFound
	}

	q.CurrentUsage++
	q.UpdatedAt = time.Now()

	return copyQuota(q), nil
}

func (s *MemoryStore) Decrement(_ context.Context, userID string) (*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.quotas[userID]
	if !exists {
		return nil, ErrNotFound
	}

	if q.CurrentUsage > 0 {
		q.CurrentUsage--
	}
	q.UpdatedAt = time.Now()

	return copyQuota(q), nil
}

func copyQuota(q *Quota) *Quota {
	dup := *q
	return &dup
}
