package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/sampler"
)

// PathHandler answers node and sampling queries against the latest snapshot.
type PathHandler struct {
	deps          Dependencies
	samples       int
	maxSamples    int
	forwardOffset float64
}

// NewPathHandler creates a new path handler.
func NewPathHandler(deps Dependencies, opts ...Option) *PathHandler {
	h := &PathHandler{
		deps:          deps,
		samples:       DefaultSamples,
		maxSamples:    MaxSamples,
		forwardOffset: DefaultForwardPointOffset,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type nodeView struct {
	Index      int        `json:"index"`
	Timestamp  float64    `json:"timestamp"`
	Position   model.Vec3 `json:"position"`
	InTangent  model.Vec3 `json:"in_tangent"`
	OutTangent model.Vec3 `json:"out_tangent"`
	Tilt       float64    `json:"tilt"`
	Ease       float64    `json:"ease"`
	RotationAt model.Vec3 `json:"rotation_point"`
}

type nodesResponse struct {
	Version     uint64            `json:"path_version"`
	WrapMode    model.WrapMode    `json:"wrap_mode"`
	TangentMode model.TangentMode `json:"tangent_mode"`
	Nodes       []nodeView        `json:"nodes"`
}

// HandleNodes handles GET /nodes requests.
func (h *PathHandler) HandleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, ok := snapshot(w, h.deps)
	if !ok {
		return
	}
	// Node times are inside [0,1] so the wrap mode never matters here.
	s := snap.Sampler(sampler.WithWrapMode(model.Clamp))
	resp := nodesResponse{
		Version:     snap.Version(),
		WrapMode:    snap.WrapMode(),
		TangentMode: snap.TangentMode(),
	}
	for i, n := range snap.Nodes() {
		v := nodeView{
			Index:      i,
			Timestamp:  n.Timestamp,
			Position:   n.Position,
			InTangent:  n.InTangent,
			OutTangent: n.OutTangent,
		}
		v.Tilt, _ = s.TiltAt(n.Timestamp)
		v.Ease, _ = s.EaseAt(n.Timestamp)
		v.RotationAt, _ = s.RotationTargetAt(n.Timestamp)
		resp.Nodes = append(resp.Nodes, v)
	}
	writeJSON(w, http.StatusOK, resp)
}

type sampleResponse struct {
	Query          float64    `json:"t"`
	Resolved       float64    `json:"resolved"`
	Position       model.Vec3 `json:"position"`
	ForwardPoint   model.Vec3 `json:"forward_point"`
	RotationTarget model.Vec3 `json:"rotation_target"`
	Tilt           float64    `json:"tilt"`
	Ease           float64    `json:"ease"`
}

// HandleSample handles GET /sample?t= requests. The time is resolved with
// the path's own wrap mode.
func (h *PathHandler) HandleSample(w http.ResponseWriter, r *http.Request) {
	const op = "api.sample"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	t, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: t must be a number", op, ErrBadRequest))
		return
	}
	snap, ok := snapshot(w, h.deps)
	if !ok {
		return
	}
	s := snap.Sampler()
	resp := sampleResponse{Query: t}
	resp.Resolved, err = sampler.Resolve(s.WrapMode(), t)
	if err == nil {
		resp.Position, err = s.PositionAt(t)
	}
	if err == nil {
		resp.ForwardPoint, err = s.ForwardPointAt(t, h.forwardOffset)
	}
	if err == nil {
		resp.RotationTarget, err = s.RotationTargetAt(t)
	}
	if err == nil {
		resp.Tilt, err = s.TiltAt(t)
	}
	if err == nil {
		resp.Ease, err = s.EaseAt(t)
	}
	if err != nil {
		if errors.Is(err, sampler.ErrOutOfRangeQuery) {
			writeError(w, http.StatusBadRequest, "out_of_range", fmt.Errorf("%s: %w", op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type samplesResponse struct {
	Version uint64       `json:"path_version"`
	Points  []model.Vec3 `json:"points"`
}

// HandleSamples handles GET /samples?n= requests, returning n positions
// evenly spaced over the whole path for gizmo drawing.
func (h *PathHandler) HandleSamples(w http.ResponseWriter, r *http.Request) {
	const op = "api.samples"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := h.samples
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: n must be a positive integer", op, ErrBadRequest))
			return
		}
		if v > h.maxSamples {
			writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%s: %w: n exceeds %d", op, ErrBadRequest, h.maxSamples))
			return
		}
		n = v
	}
	snap, ok := snapshot(w, h.deps)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, samplesResponse{Version: snap.Version(), Points: snap.SampleForPoints(n)})
}
