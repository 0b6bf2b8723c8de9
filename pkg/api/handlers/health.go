package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/dittowatch/pkg/mirror"
)

// Registry is the view of the mirror registry the handlers need.
type Registry interface {
	Statuses() []mirror.Status
	Status(name string) (mirror.Status, error)
}

// HealthHandler handles health check endpoints.
//
//   - Liveness: is the process serving?
//   - Readiness: are all mirrors within their latency SLO?
type HealthHandler struct {
	registry  Registry
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. A nil registry makes
// readiness fail.
func NewHealthHandler(registry Registry) *HealthHandler {
	return &HealthHandler{registry: registry, startedAt: time.Now()}
}

// LivenessInfo is the payload of GET /health.
type LivenessInfo struct {
	Service   string    `json:"service"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	UptimeSec int64     `json:"uptime_sec"`
}

// Liveness handles GET /health. It always succeeds while the HTTP server
// is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(LivenessInfo{
		Service:   "dittowatch",
		StartedAt: h.startedAt.UTC(),
		Uptime:    uptime.Round(time.Second).String(),
		UptimeSec: int64(uptime.Seconds()),
	}))
}

// ReadinessSummary counts mirrors per state.
type ReadinessSummary struct {
	Mirrors int      `json:"mirrors"`
	Healthy int      `json:"healthy"`
	Failed  []string `json:"failed,omitempty"`
	Unknown int      `json:"unknown"`
}

// Readiness handles GET /health/ready.
//
// Returns 503 Service Unavailable when no mirror is configured or any
// mirror is failed. Mirrors not yet evaluated do not block readiness.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("registry not initialized", nil))
		return
	}

	statuses := h.registry.Statuses()
	if len(statuses) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("no mirrors configured", nil))
		return
	}

	summary := ReadinessSummary{Mirrors: len(statuses)}
	for _, st := range statuses {
		switch st.State {
		case mirror.StateHealthy:
			summary.Healthy++
		case mirror.StateFailed:
			summary.Failed = append(summary.Failed, st.Name)
		default:
			summary.Unknown++
		}
	}

	if len(summary.Failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("mirrors failed", summary))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(summary))
}
