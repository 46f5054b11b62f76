package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewInvalidCredentialFormat flags malformed phone/PIN/email shapes rejected
// before any store access.
func NewInvalidCredentialFormat(message string, details map[string]any) error {
	return NewDomainError("INVALID_CREDENTIAL_FORMAT", message, http.StatusBadRequest, details)
}

// NewInvalidCredentials is the single externally-visible rejection covering
// lookup miss, PIN mismatch, and missing stored PIN. Callers must not attach
// field-level detail: the response shape is identical regardless of which
// check failed.
func NewInvalidCredentials() error {
	return NewDomainError("INVALID_CREDENTIALS", "Invalid credentials", http.StatusUnauthorized, nil)
}

// NewInvalidSession collapses every session validation failure into one
// externally-visible outcome.
func NewInvalidSession() error {
	return NewDomainError("INVALID_SESSION", "Invalid session", http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewServiceUnavailable wraps store failures so operators can tell "database
// down" apart from "wrong PIN" in logs, while clients get a retry hint.
func NewServiceUnavailable(err error) error {
	return &DomainError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "service temporarily unavailable, please retry",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewNotFound(resource string) error {
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource").(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
