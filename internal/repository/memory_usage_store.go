package repository

import (
	"context"
	"sync"
	"time"

	"ba6-ai-server/internal/domain"
)

type usageKey struct {
	userID   string
	monthKey string
}

// MemoryUsageStore is a process-local domain.UsageStore for development and
// tests. Each operation runs under one lock, which gives it the same
// single-statement semantics as the Postgres store.
type MemoryUsageStore struct {
	mu      sync.Mutex
	records map[usageKey]*domain.UsageRecord
	now     func() time.Time
}

func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{
		records: make(map[usageKey]*domain.UsageRecord),
		now:     time.Now,
	}
}

func (s *MemoryUsageStore) Get(ctx context.Context, userID, monthKey string) (*domain.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[usageKey{userID, monthKey}]
	if !ok {
		return nil, nil
	}
	return copyRecord(record), nil
}

func (s *MemoryUsageStore) Insert(ctx context.Context, record *domain.UsageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{record.UserID, record.MonthKey}
	if _, exists := s.records[key]; exists {
		return domain.ErrDuplicateUsage
	}
	stored := copyRecord(record)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.records[key] = stored
	return nil
}

func (s *MemoryUsageStore) IncrementIfBelow(ctx context.Context, userID, monthKey string, kind domain.UsageKind, limit int) (*domain.UsageRecord, bool, error) {
	return s.update(ctx, userID, monthKey, func(r *domain.UsageRecord) bool {
		counter := counterFor(r, kind)
		if *counter >= limit {
			return false
		}
		*counter++
		return true
	})
}

func (s *MemoryUsageStore) DecrementIfPositive(ctx context.Context, userID, monthKey string, kind domain.UsageKind) (*domain.UsageRecord, bool, error) {
	return s.update(ctx, userID, monthKey, func(r *domain.UsageRecord) bool {
		counter := counterFor(r, kind)
		if *counter <= 0 {
			return false
		}
		*counter--
		return true
	})
}

func (s *MemoryUsageStore) update(ctx context.Context, userID, monthKey string, apply func(*domain.UsageRecord) bool) (*domain.UsageRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[usageKey{userID, monthKey}]
	if !ok || !apply(record) {
		return nil, false, nil
	}
	record.UpdatedAt = s.now().UTC()
	return copyRecord(record), true, nil
}

func counterFor(r *domain.UsageRecord, kind domain.UsageKind) *int {
	if kind == domain.UsageImage {
		return &r.ImageCount
	}
	return &r.TextCount
}

func copyRecord(r *domain.UsageRecord) *domain.UsageRecord {
	c := *r
	return &c
}
