// Package apperror defines the application's error taxonomy.
//
// Services and repositories return these domain errors; the HTTP layer is the
// only place that translates them into status codes. Callers check the kind
// with errors.Is against the sentinel values below — the AppError wrapper
// implements Unwrap so the sentinels survive any amount of %w wrapping.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstream covers failures talking to the external AI provider:
	// network errors, non-200 responses, empty replies. Never retried.
	ErrUpstream = errors.New("upstream error")

	// ErrMalformedResponse means the AI provider answered but the reply could
	// not be parsed into the expected structure. Distinct from ErrUpstream so
	// callers can tell "provider down" from "provider spoke gibberish".
	ErrMalformedResponse = errors.New("malformed response")
)

type AppError struct {
	Err     error  // sentinel identifying the error kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for a missing or invalid credential
// (session cookie or Google ID token). HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Upstream wraps a failure reaching or reading the external AI provider.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, cause),
		Message: message,
	}
}

// MalformedAIResponse marks an AI reply that could not be parsed into the
// expected structure. The caller must NOT persist anything when it sees this.
func MalformedAIResponse(message string) *AppError {
	return &AppError{
		Err:     ErrMalformedResponse,
		Message: message,
	}
}
