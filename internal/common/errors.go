package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("requested resource not found")

	// Request validation.
	ErrMissingFields      = errors.New("all fields are required")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrMissingCoordinates = errors.New("start and end points are required")

	// Login keeps the historical distinction between the two failure modes.
	// It leaks account existence; callers rely on the exact messages.
	ErrUsernameIncorrect = errors.New("username incorrect")
	ErrPasswordIncorrect = errors.New("password incorrect")

	// Store-level failures.
	ErrDuplicateUsername = errors.New("username already in use")
	ErrDuplicateEmail    = errors.New("email already in use")
	ErrContention        = errors.New("database is busy")

	// Routing results.
	ErrRouteNotFound   = errors.New("no route found between these points")
	ErrRouteNoSegments = errors.New("route contains no segments")
)

// UpstreamError reports a non-success HTTP status from a proxied service.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream service returned status %d", e.StatusCode)
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrMissingFields) || errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrMissingCoordinates) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateEmail) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUsernameIncorrect) || errors.Is(err, ErrPasswordIncorrect) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRouteNotFound) || errors.Is(err, ErrRouteNoSegments) {
		return http.StatusNotFound
	}

	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return http.StatusBadGateway
	}

	// ErrContention and anything unexpected.
	return http.StatusInternalServerError
}
