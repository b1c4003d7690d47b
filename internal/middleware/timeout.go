package middleware

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout bounds one command end-to-end, including the
	// upstream call and its single retry (two attempts plus the fixed
	// retry delay fit well inside it).
	DefaultRequestTimeout = 30 * time.Second
)

const timeoutBody = `{"success":false,"error":"Timeout","message":"The command took too long to process. Please try again."}`

// Timeout enforces a deadline on request handling. The request context
// carries the deadline so downstream upstream calls are cancelled, and
// http.TimeoutHandler guards the response write.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		handler := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			handler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
