package domain

import (
	"context"
	"strings"
	"time"
)

// SubscriptionRecord is the latest known billing state for a user. It is
// owned by the billing collaborator and read-only here.
type SubscriptionRecord struct {
	UserID             string     `json:"user_id"`
	PriceID            string     `json:"price_id"`
	SubscriptionStatus string     `json:"subscription_status"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

var activeLikeStatuses = map[string]struct{}{
	"active":   {},
	"trialing": {},
	"past_due": {},
}

// IsActiveLikeStatus reports whether a billing status still grants a paid
// tier. Comparison is case-insensitive.
func IsActiveLikeStatus(status string) bool {
	_, ok := activeLikeStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// Profile is the user row that carries the denormalized plan label written
// by the billing webhook.
type Profile struct {
	ID                   string `json:"id"`
	Plan                 string `json:"plan"`
	StripeCustomerID     string `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string `json:"stripe_subscription_id,omitempty"`
}

// PlanTier returns the normalized tier of the stored plan label.
func (p *Profile) PlanTier() PlanTier {
	if p == nil {
		return PlanFree
	}
	return NormalizePlanTier(p.Plan)
}

// ProfilePlanUpdate is what the billing webhook writes back to a profile.
// Empty identifiers are left untouched.
type ProfilePlanUpdate struct {
	Plan                 PlanTier
	StripeCustomerID     string
	StripeSubscriptionID string
}

// ProfileRepository is the relational store view used for plan resolution
// and webhook plan updates.
type ProfileRepository interface {
	// GetProfile returns nil, nil when the user has no profile row.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// GetSubscription returns nil, nil when no billing record exists.
	GetSubscription(ctx context.Context, userID string) (*SubscriptionRecord, error)
	UpdatePlanByUserID(ctx context.Context, userID string, update ProfilePlanUpdate) error
	// UpdatePlanByCustomer returns the number of profiles updated.
	UpdatePlanByCustomer(ctx context.Context, customerID string, update ProfilePlanUpdate) (int, error)
}

// CheckoutCompleted is a finished checkout reported by the billing provider.
type CheckoutCompleted struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
	// PlanLabel is the plan requested at checkout, if the session carried one.
	PlanLabel string
}

// SubscriptionChanged is an update or deletion of a billing subscription.
type SubscriptionChanged struct {
	CustomerID     string
	SubscriptionID string
	PriceID        string
	Status         string
	Deleted        bool
}
