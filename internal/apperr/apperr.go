package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("project limit reached")
	ErrUpstream      = errors.New("generation service unavailable")
	ErrStorage       = errors.New("storage failure")
	ErrConflict      = errors.New("conflicting write")
)

// ValidationError carries the user-facing reason an input was rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Validation(message string) error {
	return &ValidationError{Message: message}
}

// HTTPStatus maps an error from the core or services to a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show to the caller. Internal
// failures collapse to a generic message; the handler logs the cause.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrQuotaExceeded):
		return "you have reached your project limit, upgrade your plan to create more projects"
	case errors.Is(err, ErrConflict):
		return "the resource was modified concurrently, please retry"
	case errors.Is(err, ErrUpstream):
		return "MIDI generation service is unavailable, please try again shortly"
	default:
		return "internal server error"
	}
}
