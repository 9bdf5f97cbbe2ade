package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bull/docqa/internal/storage"
)

// healthTimeout bounds one health check, Qdrant round trips included.
const healthTimeout = 3 * time.Second

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string `json:"status"` // healthy or unhealthy
	Backend   string `json:"backend,omitempty"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is the part of a vector store /health needs.
type HealthChecker interface {
	Health(ctx context.Context) error
	Stats(ctx context.Context) (*storage.Stats, error)
}

// NewHealthHandler serves /health: 200 with index counts when the store is
// usable, 503 with the failure otherwise.
func NewHealthHandler(store HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := HealthResponse{Status: "healthy", Timestamp: time.Now().UTC().Format(time.RFC3339)}
		code := http.StatusOK

		stats, err := store.Stats(ctx)
		if err == nil {
			resp.Backend, resp.Documents, resp.Chunks = stats.Backend, stats.Documents, stats.Chunks
			err = store.Health(ctx)
		}
		if err != nil {
			resp.Status, resp.Error = "unhealthy", err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
