package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrTaskNotFound       = errors.New("task not found")
	ErrAuditNotFound      = errors.New("audit entry not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	// ErrStoreIO wraps any failure of the durable record store.
	ErrStoreIO = errors.New("record store unavailable")
)
