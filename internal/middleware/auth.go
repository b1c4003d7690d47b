package middleware

import (
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/tagtalk/tagtalk/internal/request"
	"go.uber.org/zap"
)

// Auth creates authentication middleware that validates bearer tokens signed
// with the shared HMAC secret. The verified subject claim becomes the user id
// and the raw token rides along for upstream passthrough.
func Auth(secret []byte, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format")
				return
			}

			tokenString := parts[1]

			token, err := jwt.Parse([]byte(tokenString),
				jwt.WithKey(jwa.HS256, secret),
				jwt.WithValidate(true),
			)
			if err != nil {
				logger.Warn("token_verification_failed", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}

			sub := token.Subject()
			if sub == "" {
				respondError(w, http.StatusUnauthorized, "Unauthorized", "Token missing subject claim")
				return
			}

			ctx := request.WithIdentity(r.Context(), request.Identity{
				UserID: sub,
				Token:  tokenString,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
