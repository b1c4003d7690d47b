// Package request holds per-request helpers shared by middleware and handlers.
package request

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated caller of one request. Token is the raw
// bearer credential, forwarded verbatim to the upstream task service.
type Identity struct {
	UserID string
	Token  string
}

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithIdentity returns a context with the caller identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the caller identity, or false if the request
// never passed through auth middleware.
func IdentityFromContext(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityContextKey).(Identity)
	return id, ok
}
