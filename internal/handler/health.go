package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/schoolhq/settlement-engine/pkg/response"
)

const probeTimeout = 5 * time.Second

// HealthHandler exposes liveness and readiness probes. Readiness covers the
// two stores the settlement path cannot run without.
type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type probeResult struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health reports process liveness only; it must not touch dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, probeResult{Status: "ok", Timestamp: time.Now()})
}

// Ready verifies postgres and redis are reachable before the instance takes
// webhook traffic.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	result := probeResult{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    map[string]string{},
	}

	probes := []struct {
		name  string
		check func(ctx context.Context) error
	}{
		{"database", func(ctx context.Context) error { return h.db.PingContext(ctx) }},
		{"redis", func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }},
	}

	for _, probe := range probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := probe.check(ctx)
		cancel()

		if err != nil {
			result.Status = "error"
			result.Checks[probe.name] = "failed: " + err.Error()
			continue
		}
		result.Checks[probe.name] = "ok"
	}

	if result.Status == "error" {
		response.Error(w, http.StatusServiceUnavailable, "Service not ready", nil)
		return
	}

	response.Success(w, result)
}
