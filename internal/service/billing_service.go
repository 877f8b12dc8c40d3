package service

import (
	"context"
	"strings"

	"ba6-ai-server/internal/domain"
	apperrors "ba6-ai-server/pkg/errors"
)

// BillingService writes billing events back to profile.plan. Subscription
// changes go through the same PlanResolver rule as request-time entitlement.
type BillingService struct {
	profiles domain.ProfileRepository
	resolver *PlanResolver
	logger   domain.Logger
}

func NewBillingService(profiles domain.ProfileRepository, resolver *PlanResolver, logger domain.Logger) *BillingService {
	return &BillingService{
		profiles: profiles,
		resolver: resolver,
		logger:   logger,
	}
}

// ApplyCheckout records a completed checkout. Sessions without a user are
// acknowledged and ignored.
func (s *BillingService) ApplyCheckout(ctx context.Context, event domain.CheckoutCompleted) (domain.PlanTier, error) {
	if s.profiles == nil {
		return "", apperrors.NewConfigError("Profile store not configured")
	}
	if event.UserID == "" {
		s.logger.Warn("Checkout completed without a user reference", "customer_id", event.CustomerID)
		return "", nil
	}

	plan := checkoutPlan(event.PlanLabel)
	err := s.profiles.UpdatePlanByUserID(ctx, event.UserID, domain.ProfilePlanUpdate{
		Plan:                 plan,
		StripeCustomerID:     event.CustomerID,
		StripeSubscriptionID: event.SubscriptionID,
	})
	if err != nil {
		s.logger.Error("Failed to apply checkout", err, "user_id", event.UserID)
		return "", apperrors.NewStoreUnavailableError("Failed to update plan", err)
	}
	return plan, nil
}

// ApplySubscriptionChange recomputes the plan of the profile linked to the
// event's customer. A deleted subscription resolves as canceled.
func (s *BillingService) ApplySubscriptionChange(ctx context.Context, event domain.SubscriptionChanged) (domain.PlanTier, error) {
	if s.profiles == nil {
		return "", apperrors.NewConfigError("Profile store not configured")
	}
	if event.CustomerID == "" {
		s.logger.Warn("Subscription event without a customer", "subscription_id", event.SubscriptionID)
		return "", nil
	}

	status := event.Status
	if event.Deleted {
		status = "canceled"
	}
	plan := s.resolver.Resolve(&domain.SubscriptionRecord{
		PriceID:            event.PriceID,
		SubscriptionStatus: status,
	}, domain.PlanFree)

	updated, err := s.profiles.UpdatePlanByCustomer(ctx, event.CustomerID, domain.ProfilePlanUpdate{
		Plan:                 plan,
		StripeSubscriptionID: event.SubscriptionID,
	})
	if err != nil {
		s.logger.Error("Failed to apply subscription change", err, "customer_id", event.CustomerID)
		return "", apperrors.NewStoreUnavailableError("Failed to update plan", err)
	}
	if updated == 0 {
		s.logger.Warn("No profile linked to billing customer", "customer_id", event.CustomerID)
	}
	return plan, nil
}

// checkoutPlan maps checkout metadata to a tier. Missing or unrecognised
// labels mean the default paid tier.
func checkoutPlan(label string) domain.PlanTier {
	switch domain.PlanTier(strings.ToLower(strings.TrimSpace(label))) {
	case domain.PlanTeam:
		return domain.PlanTeam
	case domain.PlanFree:
		return domain.PlanFree
	default:
		return domain.PlanPro
	}
}
