package domain

import "errors"

// Domain errors
var (
	ErrDuplicateUsage     = errors.New("usage record already exists")
	ErrUsageRecordMissing = errors.New("usage record missing")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingCredentials = errors.New("missing upstream credentials")
	ErrStoreNotConfigured = errors.New("store not configured")
	ErrInvalidModel       = errors.New("model record has no id")
	ErrCatalogUnavailable = errors.New("model catalog unavailable")
)
