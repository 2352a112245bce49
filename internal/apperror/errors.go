// Package apperror provides domain-specific error types for the progress
// store. These errors carry an HTTP status code and a user-safe message. The
// Echo error handler maps them to appropriate HTTP responses automatically.
//
// NEVER return raw storage or infrastructure errors to the client. Always
// wrap them in an apperror type or return a generic internal error.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 400, 401, 503).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "invalid_input").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors for the domain error taxonomy ---

// NewInvalidInput creates a 400 error for malformed or missing required
// fields (username/password length, missing sessionId, unparseable body).
func NewInvalidInput(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "invalid_input",
		Message: message,
	}
}

// NewDuplicateUser creates a 409 error for a registration collision.
func NewDuplicateUser(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    "duplicate_user",
		Message: message,
	}
}

// NewAuthFailed creates a 401 error for a failed login. Unknown username and
// wrong password deliberately produce the same error so callers cannot tell
// which case occurred.
func NewAuthFailed() *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "auth_failed",
		Message: "Invalid username or password",
	}
}

// NewUnknownUser creates a 401 error for a mutating action against an
// account that does not exist. Distinct from AuthFailed: it occurs after the
// caller has already presented an identity.
func NewUnknownUser(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "unknown_user",
		Message: message,
	}
}

// NewUnauthorized creates a 401 error for requests missing an identity.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "unauthorized",
		Message: message,
	}
}

// NewBackendUnavailable creates a 503 error for persistence failures. The
// real error is stored in Internal for logging; the client only learns that
// persistence failed, never storage details.
func NewBackendUnavailable(err error) *AppError {
	return &AppError{
		Code:     http.StatusServiceUnavailable,
		Type:     "backend_unavailable",
		Message:  "Storage is temporarily unavailable. Please try again.",
		Internal: err,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// SafeMessage returns the client-safe error message from an error. If the
// error is an AppError, returns its Message field (which is safe to expose).
// For any other error type, returns a generic message to prevent leaking
// internal details like file paths, key names, or stack traces.
func SafeMessage(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
