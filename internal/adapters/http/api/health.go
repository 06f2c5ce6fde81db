package api

import (
	"net/http"

	"github.com/okian/animpath/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  uint64 `json:"path_version"`
	Nodes    int    `json:"nodes"`
	Playback string `json:"playback"`
}

// HandleHealth handles GET /healthz requests. It reports 503 until the
// first path snapshot is published.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, ok := snapshot(w, h.deps)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Version:  snap.Version(),
		Nodes:    snap.NodeCount(),
		Playback: h.deps.Playback().State.String(),
	})
}

// NewMetricsHandler serves the process metrics registry.
func NewMetricsHandler() http.Handler {
	return metrics.Handler()
}
