package handler

import (
	"context"
	"net/http"

	"ba6-ai-server/internal/domain"
)

// PlanLookup resolves the effective plan of a user.
type PlanLookup interface {
	ResolveForUser(ctx context.Context, userID string) (domain.PlanTier, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	plans  PlanLookup
	logger domain.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(plans PlanLookup, logger domain.Logger) *AuthHandler {
	return &AuthHandler{
		plans:  plans,
		logger: logger,
	}
}

type profileResponse struct {
	ID     string            `json:"id"`
	Email  string            `json:"email"`
	Plan   domain.PlanTier   `json:"plan"`
	Limits domain.PlanLimits `json:"limits"`
}

// GetProfile returns the current user with the effective plan
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	plan, err := h.plans.ResolveForUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to resolve plan", err, "user_id", user.ID)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:     user.ID,
		Email:  user.Email,
		Plan:   plan,
		Limits: domain.LimitsFor(plan),
	})
}

// ValidateToken echoes the authenticated user
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"user_id": user.ID,
	})
}
