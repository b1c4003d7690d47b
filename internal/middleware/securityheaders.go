package middleware

import (
	"net/http"
)

// SecurityHeaders sets the response headers appropriate for a JSON API that
// serves per-user data: no sniffing, no framing, no caching of responses.
// HSTS is opt-in and only emitted on TLS requests so local development over
// plain HTTP is unaffected.
func SecurityHeaders(enableHSTS bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", "default-src 'none'")
			// Responses are scoped to the authenticated user
			h.Set("Cache-Control", "no-store")

			if enableHSTS && r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			}

			next.ServeHTTP(w, r)
		})
	}
}
