package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/tagtalk/tagtalk/internal/request"
	"go.uber.org/zap"
)

var testSecret = []byte("auth-test-secret")

func signToken(t *testing.T, sub string, exp time.Time, secret []byte) string {
	t.Helper()

	token, err := jwt.NewBuilder().
		Subject(sub).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(exp).
		Build()
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

func TestAuthAcceptsValidToken(t *testing.T) {
	t.Parallel()

	tokenString := signToken(t, "user-42", time.Now().Add(time.Hour), testSecret)

	var gotID request.Identity
	handler := Auth(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = request.IdentityFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/commands", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID.UserID != "user-42" {
		t.Errorf("UserID = %q, want user-42", gotID.UserID)
	}
	if gotID.Token != tokenString {
		t.Error("raw token should be preserved for upstream passthrough")
	}
}

func TestAuthRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "wrong key", header: "Bearer " + signTokenWithKey(t, []byte("other-secret"))},
		{name: "expired", header: "Bearer " + signTokenExpired(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := Auth(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be reached")
			}))

			req := httptest.NewRequest("POST", "/api/v1/commands", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func signTokenWithKey(t *testing.T, secret []byte) string {
	t.Helper()
	return signToken(t, "user-42", time.Now().Add(time.Hour), secret)
}

func signTokenExpired(t *testing.T) string {
	t.Helper()
	return signToken(t, "user-42", time.Now().Add(-time.Hour), testSecret)
}
