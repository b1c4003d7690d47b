package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"json post", "POST", "application/json", http.StatusOK},
		{"json with charset", "POST", "application/json; charset=utf-8", http.StatusOK},
		{"missing on post", "POST", "", http.StatusBadRequest},
		{"wrong type", "POST", "text/plain", http.StatusUnsupportedMediaType},
		{"form encoded", "POST", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"get skips check", "GET", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/v1/commands", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()

			ContentType(handler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
