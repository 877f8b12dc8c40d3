package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"ba6-ai-server/internal/domain"
	apperrors "ba6-ai-server/pkg/errors"
)

type contextKey string

const (
	userContextKey      contextKey = "user"
	tokenContextKey     contextKey = "token"
	requestIDContextKey contextKey = "request_id"
)

const maxRequestBody = 1 << 20

var validate = validator.New()

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) (*domain.SupabaseUser, bool) {
	user, ok := r.Context().Value(userContextKey).(*domain.SupabaseUser)
	return user, ok
}

// GetTokenFromContext extracts the authentication token from request context
func GetTokenFromContext(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenContextKey).(string)
	return token, ok
}

// GetRequestID returns the id assigned by the request logger
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDContextKey).(string)
	return id
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]interface{}{"error": message})
}

// writeAppError maps err onto its status code. Upstream errors forward the
// provider's error body; internal failures never leak their cause.
func writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if appErr.Type == apperrors.ErrorTypeUpstream && appErr.Body != nil {
		writeJSON(w, appErr.StatusCode, map[string]interface{}{"error": appErr.Body})
		return
	}
	writeError(w, appErr.StatusCode, appErr.Message)
}

// decodeJSON reads a JSON body. An empty body decodes as an empty object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return false
	}
	return true
}
