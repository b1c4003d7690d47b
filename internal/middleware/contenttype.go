package middleware

import (
	"net/http"
	"strings"
)

// ContentType requires application/json on requests that carry a body. The
// command API only accepts POST, but PUT and PATCH are checked too so a
// misrouted request fails on media type rather than deep in a handler.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := strings.ToLower(r.Header.Get("Content-Type"))
			if ct == "" {
				respondError(w, http.StatusBadRequest,
					"Bad Request", "Content-Type header is required")
				return
			}
			// application/json with an optional charset parameter
			if !strings.HasPrefix(ct, "application/json") {
				respondError(w, http.StatusUnsupportedMediaType,
					"Unsupported Media Type", "Content-Type must be application/json")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
