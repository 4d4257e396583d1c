// Package apperror defines the error taxonomy shared by the service and HTTP layers.
//
// Services return these errors (usually wrapped with fmt.Errorf and %w); the handler
// layer maps them to status codes with errors.Is. Anything that is not an *AppError
// is treated as an internal failure.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("Validation Error")
	ErrConflict         = errors.New("conflict")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInternal         = errors.New("internal error")
)

type AppError struct {
	Err      error  // sentinel, one of the Err* values above
	Message  string // Human-readable error message
	Field    string // Optional: field causing the error
	Resource string // Optional: kind of entity for NotFound/Conflict
	Cause    error  // Optional: underlying failure (kept out of Message)
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:      ErrNotFound,
		Message:  fmt.Sprintf("%s not found with id %s", resource, id),
		Resource: resource,
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
		Err:      ErrConflict,
		Message:  fmt.Sprintf("%s conflict with id %s", resource, id),
		Resource: resource,
	}
}

// InvalidOperation reports a request that is well-formed but not allowed,
// e.g. a user following themselves. HTTP handlers map this to 400.
func InvalidOperation(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidOperation,
		Message: message,
	}
}

// Internal wraps a backend or transaction failure. The cause is reachable through
// errors.Is/As but never rendered into Message, so it is safe to show to clients.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsApp reports whether err already carries a classified *AppError.
func IsApp(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
