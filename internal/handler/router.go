package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"ba6-ai-server/internal/domain"
	"ba6-ai-server/internal/metrics"
	apperrors "ba6-ai-server/pkg/errors"
)

// DefaultAllowedOrigins are the local dev servers allowed by CORS.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173", // Vite dev server
	"http://localhost:4173", // Vite preview
	"http://localhost:3000",
	"http://localhost:8888", // netlify dev
}

// RouterConfig carries the handlers and cross-cutting pieces of the router.
type RouterConfig struct {
	AI             *AIHandler
	Models         *ModelHandler
	Config         *ConfigHandler
	Webhook        *WebhookHandler
	Auth           *AuthHandler
	Admin          *AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
	Logger         domain.Logger
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	AllowedOrigins []string
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAppError(w, apperrors.NewMethodNotAllowedError())
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	if cfg.Logger != nil {
		router.Use(RequestLogger(cfg.Logger, cfg.Metrics))
	}

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ba6-ai-server"})
	}).Methods(http.MethodGet)

	if cfg.MetricsHandler != nil {
		router.Handle("/metrics", cfg.MetricsHandler).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	if cfg.Config != nil {
		api.HandleFunc("/public-config", cfg.Config.PublicConfig).Methods(http.MethodGet)
	}
	if cfg.Models != nil {
		api.HandleFunc("/models", cfg.Models.ListModels).Methods(http.MethodGet)
	}
	if cfg.Webhook != nil {
		api.HandleFunc("/webhooks/stripe", cfg.Webhook.Stripe).Methods(http.MethodPost)
	}
	if cfg.Admin != nil {
		api.HandleFunc("/admin/users/{id}/plan", cfg.Admin.SetPlan).Methods(http.MethodPut)
	}

	// Protected routes (require authentication)
	protected := api.PathPrefix("").Subrouter()
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware)
	}
	if cfg.AI != nil {
		protected.HandleFunc("/chat", cfg.AI.Chat).Methods(http.MethodPost)
		protected.HandleFunc("/images", cfg.AI.Image).Methods(http.MethodPost)
		protected.HandleFunc("/usage", cfg.AI.GetUsage).Methods(http.MethodGet)
	}
	if cfg.Auth != nil {
		protected.HandleFunc("/auth/profile", cfg.Auth.GetProfile).Methods(http.MethodGet)
		protected.HandleFunc("/auth/validate", cfg.Auth.ValidateToken).Methods(http.MethodGet)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
