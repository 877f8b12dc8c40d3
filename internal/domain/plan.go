package domain

import "strings"

// PlanTier identifies a subscription tier. Tiers are compared only through
// their configured limits, never by name.
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
	PlanTeam PlanTier = "team"
)

// PlanLimits is the monthly generation quota granted by a tier.
type PlanLimits struct {
	TextLimit  int `json:"text"`
	ImageLimit int `json:"image"`
}

// planLimits is fixed at deploy time and never mutated.
var planLimits = map[PlanTier]PlanLimits{
	PlanFree: {TextLimit: 25, ImageLimit: 5},
	PlanPro:  {TextLimit: 1000, ImageLimit: 250},
	PlanTeam: {TextLimit: 5000, ImageLimit: 1000},
}

// NormalizePlanTier maps a stored plan label (profile.plan, checkout
// metadata) to a known tier. Empty or unknown labels become free.
func NormalizePlanTier(label string) PlanTier {
	tier := PlanTier(strings.ToLower(strings.TrimSpace(label)))
	if _, ok := planLimits[tier]; ok {
		return tier
	}
	return PlanFree
}

// LimitsFor returns the quota for tier. Unknown tiers get the free limits.
func LimitsFor(tier PlanTier) PlanLimits {
	if limits, ok := planLimits[tier]; ok {
		return limits
	}
	return planLimits[PlanFree]
}

// Limit returns the quota for a single usage kind.
func (l PlanLimits) Limit(kind UsageKind) int {
	switch kind {
	case UsageImage:
		return l.ImageLimit
	default:
		return l.TextLimit
	}
}

// PaidTiers lists the tiers that are sold through billing, in price table
// precedence order (team is matched before pro).
func PaidTiers() []PlanTier {
	return []PlanTier{PlanTeam, PlanPro}
}
