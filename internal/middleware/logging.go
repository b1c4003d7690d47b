package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/tagtalk/tagtalk/internal/logger"
	"github.com/tagtalk/tagtalk/internal/request"
	"go.uber.org/zap"
)

// Logging logs one line per request with method, sanitized path, client IP,
// status, bytes written, and duration. Health probes land at Debug so they
// don't drown the command traffic in production logs.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("client_ip", request.ClientIP(r)),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int("bytes", wrapped.bytes),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			}

			if r.URL.Path == "/healthz" {
				logger.Debug("http_request", fields...)
				return
			}
			logger.Info("http_request", fields...)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n
	return n, err
}
