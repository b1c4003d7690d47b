package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUpstreamUnavailable is returned when a transient failure persists
// through the retry
var ErrUpstreamUnavailable = errors.New("upstream task service unavailable")

// APIError is an error response from the upstream task service. The original
// payload is preserved so callers can relay field-level validation detail.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for field, detail := range e.Fields {
		parts = append(parts, field+": "+detail)
	}
	return fmt.Sprintf("upstream error (status %d): %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// IsTransient reports whether an error is worth a single retry: a transport
// failure or a 5xx response. Everything else propagates immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	// Cancellations are the caller's decision, never retried
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	// No structured status means the request never completed
	return true
}

// IsAuth reports whether an error is an upstream 401/403. These pass through
// unchanged and are never retried.
func IsAuth(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsValidation reports whether an error is an upstream 4xx other than auth
func IsValidation(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != 401 && apiErr.StatusCode != 403
	}
	return false
}

// IsNotFound reports whether an error is an upstream 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}
