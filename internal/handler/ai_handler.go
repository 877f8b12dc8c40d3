package handler

import (
	"context"
	"net/http"

	"ba6-ai-server/internal/domain"
	apperrors "ba6-ai-server/pkg/errors"
)

// GenerationService is the quota-gated generation flow behind the AI routes.
type GenerationService interface {
	Chat(ctx context.Context, userID string, req domain.ChatRequest) (*domain.ChatResponse, error)
	Image(ctx context.Context, userID string, req domain.ImageRequest) (*domain.ImageResponse, error)
	Usage(ctx context.Context, userID string) (*domain.UsageSummary, error)
}

type AIHandler struct {
	gateway GenerationService
	logger  domain.Logger
}

func NewAIHandler(gateway GenerationService, logger domain.Logger) *AIHandler {
	return &AIHandler{
		gateway: gateway,
		logger:  logger,
	}
}

// Chat handles text generation
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperrors.NewMethodNotAllowedError())
		return
	}
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.gateway.Chat(r.Context(), user.ID, req)
	if err != nil {
		h.logFailure("Chat generation failed", err, user.ID)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Image handles image generation
func (h *AIHandler) Image(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperrors.NewMethodNotAllowedError())
		return
	}
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.gateway.Image(r.Context(), user.ID, req)
	if err != nil {
		h.logFailure("Image generation failed", err, user.ID)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUsage returns the caller's plan and current-month consumption
func (h *AIHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	summary, err := h.gateway.Usage(r.Context(), user.ID)
	if err != nil {
		h.logFailure("Usage lookup failed", err, user.ID)
		writeAppError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, summary)
}

// logFailure keeps expected client errors at debug level.
func (h *AIHandler) logFailure(msg string, err error, userID string) {
	if apperrors.GetStatusCode(err) < http.StatusInternalServerError {
		h.logger.Debug(msg, "user_id", userID, "error", err.Error())
		return
	}
	h.logger.Error(msg, err, "user_id", userID)
}
