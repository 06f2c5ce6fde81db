package api

import "net/http"

// PlaybackHandler reports the driver status.
type PlaybackHandler struct {
	deps Dependencies
}

// NewPlaybackHandler creates a new playback handler.
func NewPlaybackHandler(deps Dependencies) *PlaybackHandler {
	return &PlaybackHandler{deps: deps}
}

// HandlePlayback handles GET /playback requests.
func (h *PlaybackHandler) HandlePlayback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Playback())
}
