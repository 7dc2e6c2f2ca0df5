package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid input")
	// ErrNotConfigured is returned when an operation needs the LLM API key and none is set.
	ErrNotConfigured = errors.New("API key not configured")
)
