package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	upstream Pinger
	cache    Pinger
}

// NewHealthChecker creates a new health checker. Either pinger may be nil; nil
// dependencies are skipped in extended mode.
func NewHealthChecker(upstream, cache Pinger) *HealthChecker {
	return &HealthChecker{upstream: upstream, cache: cache}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if mode == "extended" {
		checks := make(map[string]string)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if h.upstream != nil {
			if err := h.upstream.Ping(ctx); err != nil {
				response.Status = "unhealthy"
				checks["upstream"] = "unhealthy: " + err.Error()
			} else {
				checks["upstream"] = "healthy"
			}
		}

		if h.cache != nil {
			if err := h.cache.Ping(ctx); err != nil {
				response.Status = "unhealthy"
				checks["cache"] = "unhealthy: " + err.Error()
			} else {
				checks["cache"] = "healthy"
			}
		}

		response.Checks = checks

		statusCode := http.StatusOK
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(response)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
