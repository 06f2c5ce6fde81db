// Package sampler evaluates path curves at a normalized time.
//
// A Sampler holds no state of its own; it is safe for concurrent use as long
// as its Source is not mutated underneath it. Snapshots of a path satisfy that.
package sampler

import (
	"fmt"
	"math"

	"github.com/okian/animpath/internal/domain/curve"
	"github.com/okian/animpath/internal/domain/model"
)

// Source provides the curves a Sampler reads.
type Source interface {
	Curve(ch curve.Channel) *curve.Curve
	WrapMode() model.WrapMode
}

// Sampler answers position, rotation target, tilt and ease queries.
type Sampler struct {
	src      Source
	wrap     model.WrapMode
	override bool
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithWrapMode makes the sampler ignore the source's wrap mode.
func WithWrapMode(m model.WrapMode) Option {
	return func(s *Sampler) {
		s.wrap = m
		s.override = true
	}
}

// New returns a sampler over src.
func New(src Source, opts ...Option) *Sampler {
	s := &Sampler{src: src}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WrapMode returns the wrap mode queries are resolved with.
func (s *Sampler) WrapMode() model.WrapMode {
	if s.override {
		return s.wrap
	}
	return s.src.WrapMode()
}

// Resolve maps t into [0,1] according to mode.
func Resolve(mode model.WrapMode, t float64) (float64, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRangeQuery, t)
	}
	if t >= 0 && t <= 1 {
		return t, nil
	}
	switch mode {
	case model.Clamp:
		return math.Max(0, math.Min(1, t)), nil
	case model.Loop:
		return t - math.Floor(t), nil
	case model.PingPong:
		m := math.Mod(t, 2)
		if m < 0 {
			m += 2
		}
		if m > 1 {
			m = 2 - m
		}
		return m, nil
	default:
		return 0, fmt.Errorf("%w: unknown wrap mode %d", ErrOutOfRangeQuery, mode)
	}
}

// PositionAt evaluates the position curves.
func (s *Sampler) PositionAt(t float64) (model.Vec3, error) {
	return s.vector(t, curve.PositionX, curve.PositionY, curve.PositionZ)
}

// RotationTargetAt evaluates the rotation path the same way as position.
func (s *Sampler) RotationTargetAt(t float64) (model.Vec3, error) {
	return s.vector(t, curve.RotationX, curve.RotationY, curve.RotationZ)
}

// ForwardPointAt is PositionAt(t + offset).
func (s *Sampler) ForwardPointAt(t, offset float64) (model.Vec3, error) {
	return s.PositionAt(t + offset)
}

// TiltAt returns the roll angle in degrees.
func (s *Sampler) TiltAt(t float64) (float64, error) {
	return s.scalar(t, curve.Tilt)
}

// EaseAt returns the playback rate at t.
func (s *Sampler) EaseAt(t float64) (float64, error) {
	return s.scalar(t, curve.Ease)
}

func (s *Sampler) scalar(t float64, ch curve.Channel) (float64, error) {
	rt, err := Resolve(s.WrapMode(), t)
	if err != nil {
		return 0, err
	}
	return s.eval(ch, rt)
}

func (s *Sampler) vector(t float64, x, y, z curve.Channel) (model.Vec3, error) {
	rt, err := Resolve(s.WrapMode(), t)
	if err != nil {
		return model.Vec3{}, err
	}
	var out model.Vec3
	for i, ch := range [3]curve.Channel{x, y, z} {
		if out[i], err = s.eval(ch, rt); err != nil {
			return model.Vec3{}, err
		}
	}
	return out, nil
}

func (s *Sampler) eval(ch curve.Channel, t float64) (float64, error) {
	c := s.src.Curve(ch)
	if c == nil {
		return 0, nil
	}
	v, err := c.Evaluate(t)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ch, err)
	}
	return v, nil
}
