// Package apperror defines the error taxonomy shared by every layer.
//
// Services return these errors; only the HTTP layer decides which status code
// each one becomes. Callers test for a kind with errors.Is against the
// sentinels below, even through several layers of fmt.Errorf("...: %w").
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream failure")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error

	// ClientFault marks upstream failures caused by the caller's input
	// (e.g. an OAuth code the provider rejected) rather than by the provider.
	ClientFault bool
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

// Conflict reports a uniqueness violation on field (e.g. "email").
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
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

// Unauthorized covers bad signatures, expired tokens and tokens whose subject
// no longer exists. The client always sees 401; the cause is only logged.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Configuration reports a required setting (secret, client id) that is absent.
func Configuration(message string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: message,
	}
}

// Upstream reports a failed call to an external provider. clientFault selects
// between "the caller sent something bad" (400) and "the provider failed" (500).
func Upstream(message string, clientFault bool) *AppError {
	return &AppError{
		Err:         ErrUpstream,
		Message:     message,
		ClientFault: clientFault,
	}
}

// IsClientFault reports whether err carries an AppError flagged as caused by
// the caller.
func IsClientFault(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.ClientFault
}
