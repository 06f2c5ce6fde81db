package path

import (
	"github.com/okian/animpath/internal/domain/events"
	"github.com/okian/animpath/internal/domain/model"
)

// Option configures a Model.
type Option func(*settings)

// WithMinNodeTimeSeparation sets the minimum normalized time between nodes.
func WithMinNodeTimeSeparation(d float64) Option {
	return func(s *settings) {
		if d > 0 && d < 0.5 {
			s.minSep = d
		}
	}
}

// WithDefaultEndpoints sets the positions of the default first and last nodes.
func WithDefaultEndpoints(start, end model.Vec3) Option {
	return func(s *settings) {
		s.start = start
		s.end = end
	}
}

// WithTangentMode sets the initial tangent mode.
func WithTangentMode(m model.TangentMode) Option {
	return func(s *settings) { s.tangent = m }
}

// WithWrapMode sets the initial wrap mode.
func WithWrapMode(w model.WrapMode) Option {
	return func(s *settings) { s.wrap = w }
}

// WithDefaultEase sets the ease rate keyed on a new path.
func WithDefaultEase(v float64) Option {
	return func(s *settings) { s.ease = v }
}

// WithShapePreservingKeys makes auxiliary keys inserted for new nodes take
// the curve's slope instead of flat tangents.
func WithShapePreservingKeys(on bool) Option {
	return func(s *settings) { s.shape = on }
}

// WithBus publishes notifications on b instead of a private bus.
func WithBus(b *events.Bus) Option {
	return func(s *settings) {
		if b != nil {
			s.bus = b
		}
	}
}
