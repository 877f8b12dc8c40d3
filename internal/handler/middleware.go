package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ba6-ai-server/internal/domain"
	"ba6-ai-server/internal/metrics"
)

// AuthMiddleware validates Supabase bearer tokens
type AuthMiddleware struct {
	authService domain.AuthService
	logger      domain.Logger
}

func NewAuthMiddleware(authService domain.AuthService, logger domain.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Token required")
			return
		}

		user, err := m.authService.ValidateToken(token)
		if err != nil || user == nil {
			m.logger.Warn("Token validation failed", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger assigns a request id, logs one line per request and records
// request latency.
func RequestLogger(logger domain.Logger, rec metrics.Recorder) mux.MiddlewareFunc {
	if rec == nil {
		rec = metrics.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
			next.ServeHTTP(sr, r.WithContext(ctx))

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			elapsed := time.Since(start)
			rec.ObserveRequest(r.Method, route, sr.status, elapsed)
			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sr.status,
				"latency_ms", elapsed.Milliseconds(),
				"request_id", requestID,
			)
		})
	}
}
