// Package timesync keeps auxiliary curves keyed at the node timestamps of a path.
package timesync

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/animpath/internal/domain/curve"
)

// Tolerance is the distance within which an auxiliary key covers a node timestamp.
const Tolerance = 1e-4

// Syncer re-keys a set of auxiliary curves after node topology changes.
// It mutates the curves it was given; callers own rollback.
type Syncer struct {
	curves   map[curve.Channel]*curve.Curve
	channels []curve.Channel
	match    float64
	shape    bool
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithMatchTolerance sets how far a key may drift from a node timestamp and
// still be matched. It never exceeds Tolerance.
func WithMatchTolerance(tol float64) Option {
	return func(s *Syncer) {
		if tol > 0 && tol < Tolerance {
			s.match = tol
		}
	}
}

// WithShapePreserving makes inserted keys take the curve's derivative as
// tangents instead of zero.
func WithShapePreserving(on bool) Option {
	return func(s *Syncer) { s.shape = on }
}

// New returns a syncer over curves.
func New(curves map[curve.Channel]*curve.Curve, opts ...Option) *Syncer {
	s := &Syncer{curves: curves, match: Tolerance}
	for _, opt := range opts {
		opt(s)
	}
	for ch := range curves {
		s.channels = append(s.channels, ch)
	}
	sort.Slice(s.channels, func(i, j int) bool { return s.channels[i] < s.channels[j] })
	return s
}

// Channels returns the synced channels in channel order.
func (s *Syncer) Channels() []curve.Channel {
	out := make([]curve.Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// OnNodeAdded keys every auxiliary curve at exactly ts with the value the
// curve already has there. Keys near ts are left alone; a key exactly at ts
// makes the add fail with ErrKeyTaken.
func (s *Syncer) OnNodeAdded(ts float64) error {
	if err := s.vacant(ts); err != nil {
		return err
	}
	for _, ch := range s.channels {
		if err := s.insert(s.curves[ch], ch, ts); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) insert(c *curve.Curve, ch curve.Channel, ts float64) error {
	v, err := c.Evaluate(ts)
	if err != nil {
		return fmt.Errorf("%s: %w", ch, err)
	}
	var d float64
	if s.shape {
		if d, err = c.Derivative(ts); err != nil {
			return fmt.Errorf("%s: %w", ch, err)
		}
	}
	if _, err := c.AddKey(curve.Key{Time: ts, Value: v, InTangent: d, OutTangent: d}); err != nil {
		return fmt.Errorf("%s: %w", ch, err)
	}
	return nil
}

// vacant fails when any curve has a key exactly at ts.
func (s *Syncer) vacant(ts float64) error {
	for _, ch := range s.channels {
		if _, ok := s.curves[ch].Find(ts, 0); ok {
			return fmt.Errorf("%w: %s at %v", ErrKeyTaken, ch, ts)
		}
	}
	return nil
}

// OnNodeRemoved drops the key closest to ts from every auxiliary curve.
func (s *Syncer) OnNodeRemoved(ts float64) error {
	for _, ch := range s.channels {
		c := s.curves[ch]
		i, ok := c.Find(ts, s.match)
		if !ok {
			return fmt.Errorf("%w: %s has no key at %v", ErrDesync, ch, ts)
		}
		if err := c.RemoveAt(i); err != nil {
			return fmt.Errorf("%s: %w", ch, err)
		}
	}
	return nil
}

// OnNodeRetimed moves the key at from to to in every auxiliary curve,
// keeping its value and tangents. A key already sitting exactly at to makes
// the retime fail with ErrKeyTaken.
func (s *Syncer) OnNodeRetimed(from, to float64) error {
	for _, ch := range s.channels {
		c := s.curves[ch]
		i, ok := c.Find(from, s.match)
		if !ok {
			return fmt.Errorf("%w: %s has no key at %v", ErrDesync, ch, from)
		}
		if j, ok := c.Find(to, 0); ok && j != i {
			return fmt.Errorf("%w: %s at %v", ErrKeyTaken, ch, to)
		}
		k := c.Key(i)
		if err := c.RemoveAt(i); err != nil {
			return fmt.Errorf("%s: %w", ch, err)
		}
		k.Time = to
		if _, err := c.AddKey(k); err != nil {
			return fmt.Errorf("%s: %w", ch, err)
		}
	}
	return nil
}

// Verify checks that every curve holds a key at every node timestamp.
func (s *Syncer) Verify(nodeTimestamps []float64) error {
	for _, ch := range s.channels {
		c := s.curves[ch]
		for _, ts := range nodeTimestamps {
			if _, ok := c.Find(ts, s.match); !ok {
				return fmt.Errorf("%w: %s has no key at %v", ErrDesync, ch, ts)
			}
		}
	}
	return nil
}

// Reset keeps only the keys at first and last, adding them where missing.
func (s *Syncer) Reset(first, last float64) error {
	for _, ch := range s.channels {
		c := s.curves[ch]
		c.Truncate(func(k curve.Key) bool {
			return s.near(k.Time, first) || s.near(k.Time, last)
		})
		for _, ts := range []float64{first, last} {
			if _, ok := c.Find(ts, s.match); ok {
				continue
			}
			if err := s.insert(c, ch, ts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Syncer) near(a, b float64) bool {
	return math.Abs(a-b) <= s.match
}
