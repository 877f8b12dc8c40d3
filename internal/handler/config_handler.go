package handler

import (
	"net/http"

	"ba6-ai-server/internal/domain"
)

// PriceLookup maps a paid tier to its billing price id.
type PriceLookup interface {
	PriceIDFor(tier domain.PlanTier) string
}

// ConfigHandler exposes the public, non-secret client configuration.
type ConfigHandler struct {
	supabaseURL     string
	supabaseAnonKey string
	prices          PriceLookup
}

func NewConfigHandler(supabaseURL, supabaseAnonKey string, prices PriceLookup) *ConfigHandler {
	return &ConfigHandler{
		supabaseURL:     supabaseURL,
		supabaseAnonKey: supabaseAnonKey,
		prices:          prices,
	}
}

func (h *ConfigHandler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{
		"SUPABASE_URL":         h.supabaseURL,
		"SUPABASE_ANON_KEY":    h.supabaseAnonKey,
		"STRIPE_PRO_PRICE_ID":  "",
		"STRIPE_TEAM_PRICE_ID": "",
	}
	if h.prices != nil {
		payload["STRIPE_PRO_PRICE_ID"] = h.prices.PriceIDFor(domain.PlanPro)
		payload["STRIPE_TEAM_PRICE_ID"] = h.prices.PriceIDFor(domain.PlanTeam)
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, payload)
}
