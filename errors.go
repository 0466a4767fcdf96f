package hrm

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure classes the client distinguishes.
// Only ErrUnauthorized triggers the transparent refresh-and-retry repair;
// everything else passes through to the caller untouched.
var (
	// ErrNoTokens is returned by Refresh when no session exists at all.
	ErrNoTokens = errors.New("hrm: no tokens available")

	// ErrRefreshFailed is returned when the rotation endpoint rejects a
	// refresh. The session has already been torn down when callers see it.
	ErrRefreshFailed = errors.New("hrm: token refresh failed")

	// ErrSessionExpired is returned by the transport when a 401 could not
	// be repaired.
	ErrSessionExpired = errors.New("hrm: session expired")

	ErrUnauthorized = errors.New("hrm: unauthorized")
	ErrForbidden    = errors.New("hrm: forbidden")
	ErrNotFound     = errors.New("hrm: not found")
	ErrValidation   = errors.New("hrm: validation failed")
	ErrServer       = errors.New("hrm: server error")
)

// APIError carries the HTTP status and the human-readable message from the
// response envelope. It unwraps to the sentinel matching its status, so
// errors.Is(err, hrm.ErrNotFound) works on any API failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hrm: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("hrm: %s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return ClassifyStatus(e.Status)
}

// ClassifyStatus maps an HTTP status code to the matching sentinel error.
func ClassifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500:
		return ErrServer
	default:
		return nil
	}
}
