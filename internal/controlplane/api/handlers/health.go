package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/corevisor/internal/controlplane/api/problem"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/lifecycle"
)

// HealthCheckTimeout bounds the store probe of the readiness endpoint.
const HealthCheckTimeout = 5 * time.Second

// Healthchecker reports whether the persistence backend is reachable.
// store.Store implements it.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// StateReader exposes the lifecycle state. *lifecycle.Controller implements it.
type StateReader interface {
	State() lifecycle.State
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated:
//   - Liveness: is the supervisor process responsive?
//   - Readiness: is the store reachable?
type HealthHandler struct {
	store     Healthchecker
	core      StateReader
	startTime time.Time
}

// NewHealthHandler creates a new health handler. A nil store makes the
// readiness probe fail.
func NewHealthHandler(store Healthchecker, core StateReader) *HealthHandler {
	return &HealthHandler{
		store:     store,
		core:      core,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	data := map[string]any{
		"service":    "corevisor",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}
	if h.core != nil {
		data["core_state"] = h.core.State()
	}
	problem.WriteJSON(w, http.StatusOK, healthyResponse(data))
}

// Readiness handles GET /health/ready.
// Returns 200 OK when the store answers its healthcheck.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		problem.WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.store.Healthcheck(ctx); err != nil {
		problem.WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	problem.WriteJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"store_latency": time.Since(start).String(),
	}))
}
