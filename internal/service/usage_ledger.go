package service

import (
	"context"
	"errors"
	"time"

	"ba6-ai-server/internal/domain"
	apperrors "ba6-ai-server/pkg/errors"
)

// UsageLedger owns the per-user monthly counters. It holds no state of its
// own; every cross-request guarantee comes from the store's conditional
// updates and its (user_id, month_key) uniqueness constraint.
type UsageLedger struct {
	store  domain.UsageStore
	logger domain.Logger
	now    func() time.Time
}

func NewUsageLedger(store domain.UsageStore, logger domain.Logger) *UsageLedger {
	return &UsageLedger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Ensure returns the record for (userID, monthKey), creating a zeroed one if
// needed. A lost insert race re-reads the winner's row.
func (l *UsageLedger) Ensure(ctx context.Context, userID, monthKey string) (*domain.UsageRecord, error) {
	record, err := l.store.Get(ctx, userID, monthKey)
	if err != nil {
		return nil, l.storeError("Failed to read usage", err, userID, monthKey)
	}
	if record != nil {
		return record, nil
	}

	now := l.now().UTC()
	fresh := &domain.UsageRecord{
		UserID:    userID,
		MonthKey:  monthKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = l.store.Insert(ctx, fresh)
	if err == nil {
		l.logger.Debug("Created usage record", "user_id", userID, "month_key", monthKey)
		return fresh, nil
	}
	if !errors.Is(err, domain.ErrDuplicateUsage) {
		return nil, l.storeError("Failed to create usage", err, userID, monthKey)
	}

	record, err = l.store.Get(ctx, userID, monthKey)
	if err != nil {
		return nil, l.storeError("Failed to read usage", err, userID, monthKey)
	}
	if record == nil {
		return nil, l.storeError("Usage record vanished after duplicate insert", domain.ErrUsageRecordMissing, userID, monthKey)
	}
	return record, nil
}

// TryConsume adds one to kind's counter if it is below limit. Denied calls
// leave the record unchanged.
func (l *UsageLedger) TryConsume(ctx context.Context, userID, monthKey string, kind domain.UsageKind, limit int) (*domain.ConsumeResult, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("Invalid usage kind", string(kind))
	}

	for attempt := 0; attempt < 2; attempt++ {
		if limit <= 0 {
			record, err := l.Ensure(ctx, userID, monthKey)
			if err != nil {
				return nil, err
			}
			return &domain.ConsumeResult{Allowed: false, Record: record}, nil
		}

		record, ok, err := l.store.IncrementIfBelow(ctx, userID, monthKey, kind, limit)
		if err != nil {
			return nil, l.storeError("Failed to increment usage", err, userID, monthKey)
		}
		if ok {
			return &domain.ConsumeResult{Allowed: true, Record: record}, nil
		}

		// Nothing updated: either the limit is reached or the row is missing.
		current, err := l.store.Get(ctx, userID, monthKey)
		if err != nil {
			return nil, l.storeError("Failed to read usage", err, userID, monthKey)
		}
		if current != nil {
			return &domain.ConsumeResult{Allowed: false, Record: current}, nil
		}
		if _, err := l.Ensure(ctx, userID, monthKey); err != nil {
			return nil, err
		}
	}

	return nil, l.storeError("Usage record missing after create", domain.ErrUsageRecordMissing, userID, monthKey)
}

// Release gives back one unit of kind. Counters never drop below zero.
func (l *UsageLedger) Release(ctx context.Context, userID, monthKey string, kind domain.UsageKind) (*domain.UsageRecord, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("Invalid usage kind", string(kind))
	}
	record, ok, err := l.store.DecrementIfPositive(ctx, userID, monthKey, kind)
	if err != nil {
		return nil, l.storeError("Failed to release usage", err, userID, monthKey)
	}
	if !ok {
		l.logger.Warn("Nothing to release", "user_id", userID, "month_key", monthKey, "kind", kind)
	}
	return record, nil
}

// Current reads the record without creating one. A missing record reads as
// zero usage.
func (l *UsageLedger) Current(ctx context.Context, userID, monthKey string) (*domain.UsageRecord, error) {
	record, err := l.store.Get(ctx, userID, monthKey)
	if err != nil {
		return nil, l.storeError("Failed to read usage", err, userID, monthKey)
	}
	if record == nil {
		return &domain.UsageRecord{UserID: userID, MonthKey: monthKey}, nil
	}
	return record, nil
}

func (l *UsageLedger) storeError(msg string, err error, userID, monthKey string) error {
	l.logger.Error(msg, err, "user_id", userID, "month_key", monthKey)
	return apperrors.NewStoreUnavailableError(msg, err)
}
