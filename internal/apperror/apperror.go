package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// Login-flow taxonomy. Every failure of the Salesforce callback resolves to
// exactly one of these. All of them are terminal for the current callback;
// none are retried.
var (
	// ErrMissingCode: the inbound callback carried no authorization code.
	ErrMissingCode = errors.New("missing authorization code")
	// ErrTokenExchange: the code-for-token call failed (transport error,
	// non-2xx status, or unparseable body).
	ErrTokenExchange = errors.New("token exchange failed")
	// ErrProfileFetch: the identity-endpoint call failed.
	ErrProfileFetch = errors.New("profile fetch failed")
	// ErrMalformedProfile: the identity endpoint answered 2xx but the payload
	// is missing a required field (email or username).
	ErrMalformedProfile = errors.New("malformed provider profile")
	// ErrPersistence: the account store rejected a write.
	ErrPersistence = errors.New("persistence failed")
)

type AppError struct {
	Err     error  // actual error
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

// Persistence wraps a store error in the login-flow taxonomy. The underlying
// cause stays reachable through errors.Is/As so it can be logged with the
// failure, while Error() stays free of store internals.
func Persistence(op string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %w", ErrPersistence, op, cause),
		Message: fmt.Sprintf("persistence failed during %s", op),
	}
}
