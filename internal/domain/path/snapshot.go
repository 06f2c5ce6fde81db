package path

import (
	"github.com/okian/animpath/internal/domain/curve"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/sampler"
)

// Snapshot is an immutable copy of a model, safe for concurrent readers.
type Snapshot struct {
	nodes   []model.Node
	curves  map[curve.Channel]*curve.Curve
	wrap    model.WrapMode
	tangent model.TangentMode
	version uint64
}

// Snapshot copies the current state of the model.
func (m *Model) Snapshot() *Snapshot {
	d := m.d.clone()
	s := &Snapshot{
		nodes:   d.nodes,
		curves:  d.aux,
		wrap:    d.wrap,
		tangent: d.tangent,
		version: m.version,
	}
	for axis, c := range m.pos {
		s.curves[curve.PositionX+curve.Channel(axis)] = c.Clone()
	}
	return s
}

// Curve returns the curve for ch. Callers must not modify it.
func (s *Snapshot) Curve(ch curve.Channel) *curve.Curve { return s.curves[ch] }

// WrapMode returns the wrap mode.
func (s *Snapshot) WrapMode() model.WrapMode { return s.wrap }

// TangentMode returns the tangent mode.
func (s *Snapshot) TangentMode() model.TangentMode { return s.tangent }

// Version is the model version the snapshot was taken at.
func (s *Snapshot) Version() uint64 { return s.version }

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// Nodes returns a copy of the nodes.
func (s *Snapshot) Nodes() []model.Node {
	out := make([]model.Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// NodeTimestamps returns the node times in order.
func (s *Snapshot) NodeTimestamps() []float64 { return nodeTimestamps(s.nodes) }

// NodePositions returns the node positions in order.
func (s *Snapshot) NodePositions() []model.Vec3 { return nodePositions(s.nodes) }

// Sampler returns a sampler over the snapshot.
func (s *Snapshot) Sampler(opts ...sampler.Option) *sampler.Sampler {
	return sampler.New(s, opts...)
}

// SampleForPoints returns n positions evenly spaced in time over the whole path.
func (s *Snapshot) SampleForPoints(n int) []model.Vec3 {
	return sampleForPoints(s.Sampler(sampler.WithWrapMode(model.Clamp)), n)
}

// State returns the persisted form of the snapshot.
func (s *Snapshot) State() State {
	aux := make(map[curve.Channel]*curve.Curve, len(curve.Auxiliary))
	for _, ch := range curve.Auxiliary {
		if c, ok := s.curves[ch]; ok {
			aux[ch] = c
		}
	}
	return stateOf(s.nodes, aux, s.wrap, s.tangent)
}
