// Package common defines shared constants, helpers and sentinel errors used
// across GeoCrypt server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Download gate errors.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrLocationMismatch     = errors.New("location mismatch")
	ErrObjectMissing        = errors.New("object missing")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrNotificationFailed   = errors.New("notification failed")
)
