package domain

import (
	"context"
	"time"
)

// UsageKind is the generation kind a quota applies to.
type UsageKind string

const (
	UsageText  UsageKind = "text"
	UsageImage UsageKind = "image"
)

// Valid reports whether k is a metered kind.
func (k UsageKind) Valid() bool {
	return k == UsageText || k == UsageImage
}

// UsageRecord holds one user's counters for one UTC calendar month. There is
// exactly one record per (UserID, MonthKey).
type UsageRecord struct {
	UserID     string    `json:"user_id"`
	MonthKey   string    `json:"month_key"`
	TextCount  int       `json:"text_count"`
	ImageCount int       `json:"image_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Count returns the counter for kind.
func (r *UsageRecord) Count(kind UsageKind) int {
	if r == nil {
		return 0
	}
	if kind == UsageImage {
		return r.ImageCount
	}
	return r.TextCount
}

// ConsumeResult is the outcome of a check-and-increment.
type ConsumeResult struct {
	Allowed bool
	Record  *UsageRecord
}

// MonthKey formats t as the YYYY-MM accounting period in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UsageStore is the relational store contract behind the usage ledger. All
// cross-request coordination happens inside the store: implementations must
// make IncrementIfBelow a single conditional update.
type UsageStore interface {
	// Get returns nil, nil when no record exists for the key.
	Get(ctx context.Context, userID, monthKey string) (*UsageRecord, error)
	// Insert creates a zeroed record. It returns ErrDuplicateUsage when the
	// (userID, monthKey) uniqueness constraint rejects the row.
	Insert(ctx context.Context, record *UsageRecord) error
	// IncrementIfBelow adds one to kind's counter only while it is below
	// limit. ok is false when nothing was updated (limit reached or no row).
	IncrementIfBelow(ctx context.Context, userID, monthKey string, kind UsageKind, limit int) (record *UsageRecord, ok bool, err error)
	// DecrementIfPositive subtracts one from kind's counter while it is above
	// zero. ok is false when nothing was updated.
	DecrementIfPositive(ctx context.Context, userID, monthKey string, kind UsageKind) (record *UsageRecord, ok bool, err error)
}

// UsageSummary is the read model behind the usage endpoint.
type UsageSummary struct {
	Plan      PlanTier   `json:"plan"`
	MonthKey  string     `json:"month_key"`
	Limits    PlanLimits `json:"limits"`
	Used      PlanLimits `json:"used"`
	Remaining PlanLimits `json:"remaining"`
}
