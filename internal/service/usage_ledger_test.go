package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ba6-ai-server/internal/domain"
	"ba6-ai-server/internal/repository"
	apperrors "ba6-ai-server/pkg/errors"
)

// lostRaceStore simulates another instance creating the row between this
// instance's read and insert.
type lostRaceStore struct {
	*repository.MemoryUsageStore
}

func (s lostRaceStore) Insert(ctx context.Context, record *domain.UsageRecord) error {
	winner := *record
	winner.TextCount = 3
	_ = s.MemoryUsageStore.Insert(ctx, &winner)
	return domain.ErrDuplicateUsage
}

type failingStore struct {
	*repository.MemoryUsageStore
	err error
}

func (s failingStore) IncrementIfBelow(ctx context.Context, userID, monthKey string, kind domain.UsageKind, limit int) (*domain.UsageRecord, bool, error) {
	return nil, false, s.err
}

func TestUsageLedger_EnsureCreatesZeroRecord(t *testing.T) {
	ledger := NewUsageLedger(repository.NewMemoryUsageStore(), NewMockLogger())

	record, err := ledger.Ensure(context.Background(), "u1", "2024-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.TextCount != 0 || record.ImageCount != 0 {
		t.Fatalf("expected zeroed record, got %+v", record)
	}

	again, err := ledger.Ensure(context.Background(), "u1", "2024-01")
	if err != nil || again.UserID != "u1" || again.MonthKey != "2024-01" {
		t.Fatalf("expected existing record, got %+v, %v", again, err)
	}
}

func TestUsageLedger_EnsureLostInsertRaceRereads(t *testing.T) {
	store := lostRaceStore{repository.NewMemoryUsageStore()}
	ledger := NewUsageLedger(store, NewMockLogger())

	record, err := ledger.Ensure(context.Background(), "u1", "2024-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.TextCount != 3 {
		t.Fatalf("expected the winner's row, got %+v", record)
	}
}

func TestUsageLedger_EnsureConcurrentSingleRecord(t *testing.T) {
	store := repository.NewMemoryUsageStore()
	ledger := NewUsageLedger(store, NewMockLogger())

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Ensure(context.Background(), "u1", "2024-01"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUsageLedger_QuotaMonotonicity(t *testing.T) {
	ledger := NewUsageLedger(repository.NewMemoryUsageStore(), NewMockLogger())
	ctx := context.Background()
	const limit = 5

	for n := 1; n <= limit; n++ {
		result, err := ledger.TryConsume(ctx, "u1", "2024-01", domain.UsageText, limit)
		if err != nil {
			t.Fatalf("call %d: unexpected error %v", n, err)
		}
		if !result.Allowed || result.Record.TextCount != n {
			t.Fatalf("call %d: expected allowed with count %d, got %+v", n, n, result)
		}
	}

	result, err := ledger.TryConsume(ctx, "u1", "2024-01", domain.UsageText, limit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected call past the limit to be denied")
	}
	if result.Record.TextCount != limit {
		t.Fatalf("expected count to stay %d, got %d", limit, result.Record.TextCount)
	}
	if result.Record.ImageCount != 0 {
		t.Fatalf("expected image counter untouched, got %d", result.Record.ImageCount)
	}
}

func TestUsageLedger_ConcurrencySafety(t *testing.T) {
	for _, limit := range []int{0, 1, 5, 25} {
		for _, extra := range []int{1, 10, 50} {
			t.Run(fmt.Sprintf("limit=%d/extra=%d", limit, extra), func(t *testing.T) {
				store := repository.NewMemoryUsageStore()
				ledger := NewUsageLedger(store, NewMockLogger())
				ctx := context.Background()

				var (
					wg      sync.WaitGroup
					mu      sync.Mutex
					allowed int
					denied  int
				)
				start := make(chan struct{})
				for i := 0; i < limit+extra; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						<-start
						result, err := ledger.TryConsume(ctx, "u1", "2024-01", domain.UsageImage, limit)
						if err != nil {
							t.Errorf("unexpected error: %v", err)
							return
						}
						mu.Lock()
						defer mu.Unlock()
						if result.Allowed {
							allowed++
						} else {
							denied++
						}
					}()
				}
				close(start)
				wg.Wait()

				if allowed != limit || denied != extra {
					t.Fatalf("expected %d allowed and %d denied, got %d and %d", limit, extra, allowed, denied)
				}
				record, _ := store.Get(ctx, "u1", "2024-01")
				if record == nil || record.ImageCount != limit {
					t.Fatalf("expected stored count %d, got %+v", limit, record)
				}
			})
		}
	}
}

func TestUsageLedger_MonthBoundary(t *testing.T) {
	store := repository.NewMemoryUsageStore()
	ledger := NewUsageLedger(store, NewMockLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := ledger.TryConsume(ctx, "u1", "2024-01", domain.UsageText, 25); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	result, err := ledger.TryConsume(ctx, "u1", "2024-02", domain.UsageText, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed || result.Record.TextCount != 1 || result.Record.MonthKey != "2024-02" {
		t.Fatalf("expected a fresh February record, got %+v", result.Record)
	}

	january, _ := store.Get(ctx, "u1", "2024-01")
	if january.TextCount != 3 {
		t.Fatalf("expected January untouched at 3, got %d", january.TextCount)
	}
}

func TestUsageLedger_ZeroLimitNeverAllows(t *testing.T) {
	ledger := NewUsageLedger(repository.NewMemoryUsageStore(), NewMockLogger())

	result, err := ledger.TryConsume(context.Background(), "u1", "2024-01", domain.UsageText, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed || result.Record == nil || result.Record.TextCount != 0 {
		t.Fatalf("expected denial with zero count, got %+v", result)
	}
}

func TestUsageLedger_StoreFailureIsFatal(t *testing.T) {
	store := failingStore{repository.NewMemoryUsageStore(), errors.New("connection reset")}
	ledger := NewUsageLedger(store, NewMockLogger())

	result, err := ledger.TryConsume(context.Background(), "u1", "2024-01", domain.UsageText, 5)
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestUsageLedger_InvalidKind(t *testing.T) {
	ledger := NewUsageLedger(repository.NewMemoryUsageStore(), NewMockLogger())

	_, err := ledger.TryConsume(context.Background(), "u1", "2024-01", domain.UsageKind("video"), 5)
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUsageLedger_ReleaseFloorsAtZero(t *testing.T) {
	ledger := NewUsageLedger(repository.NewMemoryUsageStore(), NewMockLogger())
	ctx := context.Background()

	if _, err := ledger.TryConsume(ctx, "u1", "2024-01", domain.UsageText, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, err := ledger.Release(ctx, "u1", "2024-01", domain.UsageText)
	if err != nil || record == nil || record.TextCount != 0 {
		t.Fatalf("expected count 0 after release, got %+v, %v", record, err)
	}

	record, err = ledger.Release(ctx, "u1", "2024-01", domain.UsageText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Fatalf("expected no update at zero, got %+v", record)
	}

	current, _ := ledger.Current(ctx, "u1", "2024-01")
	if current.TextCount != 0 {
		t.Fatalf("expected count to stay 0, got %d", current.TextCount)
	}
}

func TestUsageLedger_CurrentDoesNotCreate(t *testing.T) {
	store := repository.NewMemoryUsageStore()
	ledger := NewUsageLedger(store, NewMockLogger())

	record, err := ledger.Current(context.Background(), "u1", "2024-01")
	if err != nil || record.TextCount != 0 {
		t.Fatalf("expected zero usage, got %+v, %v", record, err)
	}
	stored, _ := store.Get(context.Background(), "u1", "2024-01")
	if stored != nil {
		t.Fatalf("expected no stored record, got %+v", stored)
	}
}
