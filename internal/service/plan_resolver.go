package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"ba6-ai-server/internal/domain"
	apperrors "ba6-ai-server/pkg/errors"
)

// PriceTable maps billing price identifiers to paid tiers. Empty entries
// never match.
type PriceTable map[domain.PlanTier]string

type PlanResolver struct {
	prices  PriceTable
	profile domain.ProfileRepository
	logger  domain.Logger
}

func NewPlanResolver(prices PriceTable, profile domain.ProfileRepository, logger domain.Logger) *PlanResolver {
	table := make(PriceTable, len(prices))
	for tier, id := range prices {
		table[tier] = strings.TrimSpace(id)
	}
	return &PlanResolver{
		prices:  table,
		profile: profile,
		logger:  logger,
	}
}

// Resolve derives the effective tier from a billing record. A missing or
// inactive record, or an unknown price, yields fallback. Team is matched
// before pro.
func (r *PlanResolver) Resolve(sub *domain.SubscriptionRecord, fallback domain.PlanTier) domain.PlanTier {
	if sub == nil || !domain.IsActiveLikeStatus(sub.SubscriptionStatus) {
		return fallback
	}
	priceID := strings.TrimSpace(sub.PriceID)
	if priceID == "" {
		return fallback
	}
	for _, tier := range domain.PaidTiers() {
		if configured := r.prices[tier]; configured != "" && configured == priceID {
			return tier
		}
	}
	return fallback
}

// PriceIDFor returns the configured price identifier for tier, or "".
func (r *PlanResolver) PriceIDFor(tier domain.PlanTier) string {
	return r.prices[tier]
}

// ResolveForUser loads the profile and billing record concurrently and
// resolves the effective tier, falling back to the profile's stored plan.
func (r *PlanResolver) ResolveForUser(ctx context.Context, userID string) (domain.PlanTier, error) {
	if r.profile == nil {
		return "", apperrors.NewConfigError("Profile store not configured")
	}

	var (
		profile *domain.Profile
		sub     *domain.SubscriptionRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := r.profile.GetProfile(gctx, userID)
		profile = p
		return err
	})
	g.Go(func() error {
		s, err := r.profile.GetSubscription(gctx, userID)
		sub = s
		return err
	})
	if err := g.Wait(); err != nil {
		r.logger.Error("Failed to load plan state", err, "user_id", userID)
		return "", apperrors.NewStoreUnavailableError("Failed to resolve plan", err)
	}

	tier := r.Resolve(sub, profile.PlanTier())
	r.logger.Debug("Resolved plan", "user_id", userID, "plan", tier)
	return tier, nil
}
