package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthTimeout = 3 * time.Second

// HealthResponse is the JSON body of the /health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Store     string `json:"store"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is implemented by both store backends.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler reports whether the store answers within healthTimeout.
// An unreachable store yields 503.
func NewHealthHandler(store HealthChecker, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		response := HealthResponse{
			Backend:   backend,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK

		if err := store.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Store = "disconnected"
			response.Error = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			response.Status = "healthy"
			response.Store = "connected"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}
}
