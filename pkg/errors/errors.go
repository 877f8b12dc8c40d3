package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeUnauthorized     ErrorType = "unauthorized"
	ErrorTypeQuotaExceeded    ErrorType = "quota_exceeded"
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"
	ErrorTypeConfig           ErrorType = "config"
	ErrorTypeStoreUnavailable ErrorType = "store_unavailable"
	ErrorTypeUpstream         ErrorType = "upstream"
	ErrorTypeInternal         ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	// Body is the upstream error payload, forwarded to clients as-is.
	Body interface{} `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Details:    detail,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewQuotaExceededError reports that the caller's monthly quota is spent.
func NewQuotaExceededError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeQuotaExceeded,
		Message:    message,
		StatusCode: http.StatusPaymentRequired,
	}
}

// NewMethodNotAllowedError creates a new method not allowed error
func NewMethodNotAllowedError() *AppError {
	return &AppError{
		Type:       ErrorTypeMethodNotAllowed,
		Message:    "Method not allowed",
		StatusCode: http.StatusMethodNotAllowed,
	}
}

// NewConfigError reports a missing credential or collaborator.
func NewConfigError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConfig,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewStoreUnavailableError wraps a relational store failure.
func NewStoreUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeStoreUnavailable,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewUpstreamError carries the provider's status and body. Statuses outside
// the error range are reported as 502.
func NewUpstreamError(statusCode int, body interface{}, cause error) *AppError {
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusBadGateway
	}
	return &AppError{
		Type:       ErrorTypeUpstream,
		Message:    "Upstream request failed",
		StatusCode: statusCode,
		Cause:      cause,
		Body:       body,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
