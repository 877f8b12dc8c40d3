package repository

import (
	"context"
	"errors"
	"testing"

	"ba6-ai-server/internal/domain"
)

func TestMemoryUsageStore_InsertAndGet(t *testing.T) {
	store := NewMemoryUsageStore()
	ctx := context.Background()

	record, err := store.Get(ctx, "user-1", "2024-01")
	if err != nil || record != nil {
		t.Fatalf("expected miss, got %+v, %v", record, err)
	}

	if err := store.Insert(ctx, &domain.UsageRecord{UserID: "user-1", MonthKey: "2024-01"}); err != nil {
		t.Fatalf("expected insert to succeed, got %v", err)
	}
	if err := store.Insert(ctx, &domain.UsageRecord{UserID: "user-1", MonthKey: "2024-01"}); !errors.Is(err, domain.ErrDuplicateUsage) {
		t.Fatalf("expected ErrDuplicateUsage, got %v", err)
	}

	record, err = store.Get(ctx, "user-1", "2024-01")
	if err != nil || record == nil {
		t.Fatalf("expected record, got %+v, %v", record, err)
	}
	if record.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestMemoryUsageStore_IncrementAndDecrement(t *testing.T) {
	store := NewMemoryUsageStore()
	ctx := context.Background()

	if _, ok, _ := store.IncrementIfBelow(ctx, "user-1", "2024-01", domain.UsageText, 5); ok {
		t.Fatal("expected no update without a row")
	}

	_ = store.Insert(ctx, &domain.UsageRecord{UserID: "user-1", MonthKey: "2024-01"})

	for i := 1; i <= 2; i++ {
		record, ok, err := store.IncrementIfBelow(ctx, "user-1", "2024-01", domain.UsageImage, 2)
		if err != nil || !ok {
			t.Fatalf("increment %d: expected update, got ok=%v err=%v", i, ok, err)
		}
		if record.ImageCount != i {
			t.Fatalf("expected image_count %d, got %d", i, record.ImageCount)
		}
	}
	if _, ok, _ := store.IncrementIfBelow(ctx, "user-1", "2024-01", domain.UsageImage, 2); ok {
		t.Fatal("expected increment at limit to be refused")
	}

	record, ok, _ := store.DecrementIfPositive(ctx, "user-1", "2024-01", domain.UsageImage)
	if !ok || record.ImageCount != 1 {
		t.Fatalf("expected image_count 1 after decrement, got ok=%v record=%+v", ok, record)
	}
	if _, ok, _ := store.DecrementIfPositive(ctx, "user-1", "2024-01", domain.UsageText); ok {
		t.Fatal("expected decrement of zero counter to be refused")
	}
}

func TestMemoryUsageStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryUsageStore()
	ctx := context.Background()
	_ = store.Insert(ctx, &domain.UsageRecord{UserID: "user-1", MonthKey: "2024-01"})

	record, _ := store.Get(ctx, "user-1", "2024-01")
	record.TextCount = 99

	again, _ := store.Get(ctx, "user-1", "2024-01")
	if again.TextCount != 0 {
		t.Fatalf("expected stored record to be unaffected, got %d", again.TextCount)
	}
}
