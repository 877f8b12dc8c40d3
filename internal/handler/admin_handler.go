package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"ba6-ai-server/internal/domain"
	apperrors "ba6-ai-server/pkg/errors"
)

// PlanWriter overrides a user's stored plan.
type PlanWriter interface {
	UpdatePlanByUserID(ctx context.Context, userID string, update domain.ProfilePlanUpdate) error
}

// AdminHandler exposes support endpoints protected by X-Admin-Secret.
// An empty secret disables them.
type AdminHandler struct {
	profiles PlanWriter
	secret   string
	logger   domain.Logger
}

func NewAdminHandler(profiles PlanWriter, secret string, logger domain.Logger) *AdminHandler {
	return &AdminHandler{
		profiles: profiles,
		secret:   secret,
		logger:   logger,
	}
}

type setPlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=free pro team"`
}

// SetPlan writes profile.plan for a user. Subscription-derived plans still
// take precedence at request time.
func (h *AdminHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Admin-Secret")
	if h.secret == "" || secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	userID := mux.Vars(r)["id"]
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User id is required")
		return
	}

	var req setPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeAppError(w, apperrors.NewValidationError("Invalid plan", err.Error()))
		return
	}

	if h.profiles == nil {
		writeAppError(w, apperrors.NewConfigError("Profile store not configured"))
		return
	}
	plan := domain.PlanTier(req.Plan)
	if err := h.profiles.UpdatePlanByUserID(r.Context(), userID, domain.ProfilePlanUpdate{Plan: plan}); err != nil {
		h.logger.Error("Failed to update plan", err, "user_id", userID)
		writeAppError(w, apperrors.NewStoreUnavailableError("Failed to update plan", err))
		return
	}

	h.logger.Info("Plan overridden by admin", "user_id", userID, "plan", plan)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"plan":    plan,
	})
}
