package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/utsavhq/vendormatch/internal/health"
)

// readinessBudget bounds how long the readiness probe waits on dependency
// checks before reporting unhealthy.
const readinessBudget = 5 * time.Second

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	dbChecker    health.Checker
	redisChecker health.Checker
}

// HealthHandlersConfig configures the probes. A nil checker means the
// dependency is not configured and its check reports ok.
type HealthHandlersConfig struct {
	DBChecker    health.Checker
	RedisChecker health.Checker
}

func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	return &HealthHandlers{
		dbChecker:    config.DBChecker,
		redisChecker: config.RedisChecker,
	}
}

// HealthResponse is the JSON body both probes return.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health implements GET /health, the liveness probe. It answers 200 whenever
// the process can serve requests; dependencies are the readiness probe's job.
func (h *HealthHandlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": "ok"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready implements GET /ready, the readiness probe. Any configured dependency
// that fails its check flips the response to 503.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessBudget)
	defer cancel()

	deps := []struct {
		name    string
		checker health.Checker
	}{
		{"database", h.dbChecker},
		{"redis", h.redisChecker},
	}

	checks := make(map[string]string, len(deps))
	healthy := true
	for _, dep := range deps {
		// Nil checker: the dependency is not configured (in-memory mode)
		// and never blocks readiness.
		if dep.checker == nil {
			checks[dep.name] = "ok"
			continue
		}
		if err := dep.checker.HealthCheck(ctx); err != nil {
			slog.WarnContext(ctx, dep.name+" health check failed", "error", err)
			checks[dep.name] = "error"
			healthy = false
			continue
		}
		checks[dep.name] = "ok"
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeHealth(w, code, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeHealth(w http.ResponseWriter, status int, body HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}
