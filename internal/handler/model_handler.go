package handler

import (
	"context"
	"net/http"

	"ba6-ai-server/internal/domain"
)

// ModelLister returns the upstream catalog filtered by modality.
type ModelLister interface {
	ListModels(ctx context.Context, modality domain.Modality) ([]domain.ModelDescriptor, error)
}

type ModelHandler struct {
	catalog ModelLister
	logger  domain.Logger
}

func NewModelHandler(catalog ModelLister, logger domain.Logger) *ModelHandler {
	return &ModelHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ListModels serves GET /models?type=text|image|video
func (h *ModelHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	modality, ok := domain.ParseModality(r.URL.Query().Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown model type.")
		return
	}

	models, err := h.catalog.ListModels(r.Context(), modality)
	if err != nil {
		h.logger.Error("Failed to list models", err, "type", modality)
		writeAppError(w, err)
		return
	}
	if models == nil {
		models = []domain.ModelDescriptor{}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, models)
}
