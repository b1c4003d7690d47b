package middleware

import (
	"net/http"
)

const (
	// DefaultMaxRequestSize caps request bodies at 4KB. A command payload is
	// one short JSON object around a 500-character utterance, so anything
	// bigger is noise or abuse.
	DefaultMaxRequestSize int64 = 4 << 10
)

// MaxRequestSize rejects oversized request bodies before they are read
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondError(w, http.StatusRequestEntityTooLarge,
					"Request Entity Too Large", "Command payloads are limited to a few kilobytes.")
				return
			}

			// Content-Length can lie; MaxBytesReader enforces the cap on the
			// actual stream.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
