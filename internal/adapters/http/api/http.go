// Package api serves a read-only view of the live path and playback over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/animpath/internal/domain/path"
	"github.com/okian/animpath/internal/driver"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service.
type Dependencies interface {
	// Snapshot returns the latest published path, or nil before the first one.
	Snapshot() *path.Snapshot
	// Playback returns the driver status.
	Playback() driver.Status
}

// Server wires HTTP routes for the inspection API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	pathHandler     *PathHandler
	playbackHandler *PlaybackHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		pathHandler:     NewPathHandler(deps, opts...),
		playbackHandler: NewPlaybackHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/nodes", MetricsMiddleware(s.pathHandler.HandleNodes, "nodes"))
	mux.HandleFunc("/sample", MetricsMiddleware(s.pathHandler.HandleSample, "sample"))
	mux.HandleFunc("/samples", MetricsMiddleware(s.pathHandler.HandleSamples, "samples"))
	mux.HandleFunc("/playback", MetricsMiddleware(s.playbackHandler.HandlePlayback, "playback"))
	mux.Handle("/metrics", NewMetricsHandler())
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// snapshot fetches the current path or answers 503 when none is published.
func snapshot(w http.ResponseWriter, deps Dependencies) (*path.Snapshot, bool) {
	snap := deps.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", ErrNotReady)
		return nil, false
	}
	return snap, true
}
