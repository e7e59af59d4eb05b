// Package apperrors defines the error kinds shared by every layer and their
// HTTP status mapping.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("insufficient role")
	ErrNotFound        = errors.New("not found")
	ErrEmptyResult     = errors.New("empty result")
	ErrValidation      = errors.New("validation failed")
	ErrBackend         = errors.New("backend unavailable")
	ErrConflict        = errors.New("conflict")
)

// ValidationError describes a rejected input field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Backend wraps a failed backend call so it matches ErrBackend while keeping
// the cause reachable through errors.Unwrap chains.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBackend, err)
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBackend):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the text safe to show to a client.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrUnauthenticated):
		return "Please log in to continue."
	case errors.Is(err, ErrUnauthorized):
		return "You are not authorized to perform this action."
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEmptyResult):
		return "Not found."
	case errors.Is(err, ErrConflict):
		return "The request conflicts with the current state."
	case errors.Is(err, ErrBackend):
		return "The service is temporarily unavailable."
	}
	return "Internal server error."
}
