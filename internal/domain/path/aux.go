package path

import (
	"fmt"
	"math"

	"github.com/okian/animpath/internal/domain/curve"
	"github.com/okian/animpath/internal/domain/events"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/sampler"
)

func (m *Model) auxCurve(ch curve.Channel) (*curve.Curve, error) {
	if ch.IsPosition() {
		return nil, fmt.Errorf("%w: %s is derived from nodes", ErrChannelNotEditable, ch)
	}
	c, ok := m.d.aux[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotEditable, ch)
	}
	return c, nil
}

// AddKey puts a key with value v at time t on an auxiliary channel. A key
// already at t gets the new value.
func (m *Model) AddKey(ch curve.Channel, t, v float64) error {
	return m.apply(func() ([]events.Event, error) {
		c, err := m.auxCurve(ch)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(t) || t < 0 || t > 1 {
			return nil, fmt.Errorf("%w: key time %v outside [0,1]", ErrInvalidTimestamp, t)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value %v", ErrInvalidState, v)
		}
		if i, ok := c.Find(t, 0); ok {
			c.SetValue(i, v)
		} else if _, err := c.AddKey(curve.Key{Time: t, Value: v}); err != nil {
			return nil, err
		}
		return []events.Event{{Kind: events.CurveChanged, Index: -1, Timestamp: t}}, nil
	})
}

// RemoveKey deletes the key at time t from an auxiliary channel. Keys that
// sit on a node timestamp cannot be removed.
func (m *Model) RemoveKey(ch curve.Channel, t float64) error {
	return m.apply(func() ([]events.Event, error) {
		c, err := m.auxCurve(ch)
		if err != nil {
			return nil, err
		}
		i, ok := c.Find(t, m.keyTolerance())
		if !ok {
			return nil, fmt.Errorf("%w: %s at %v", curve.ErrKeyNotFound, ch, t)
		}
		for n, ts := range m.timestamps() {
			if j, ok := c.Find(ts, m.keyTolerance()); ok && j == i {
				return nil, fmt.Errorf("%w: %s key at %v belongs to node %d", ErrDesync, ch, t, n)
			}
		}
		if err := c.RemoveAt(i); err != nil {
			return nil, err
		}
		return []events.Event{{Kind: events.CurveChanged, Index: -1, Timestamp: t}}, nil
	})
}

// EvaluateChannel evaluates any channel at t after wrap resolution.
func (m *Model) EvaluateChannel(ch curve.Channel, t float64) (float64, error) {
	c := m.curve(ch)
	if c == nil {
		return 0, fmt.Errorf("%w: %s", ErrChannelNotEditable, ch)
	}
	rt, err := sampler.Resolve(m.d.wrap, t)
	if err != nil {
		return 0, err
	}
	return c.Evaluate(rt)
}

func (m *Model) setNodeKey(i int, ch curve.Channel, v float64) error {
	c, err := m.auxCurve(ch)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: non-finite %s value %v", ErrInvalidState, ch, v)
	}
	ts := m.d.nodes[i].Timestamp
	k, ok := c.Find(ts, m.keyTolerance())
	if !ok {
		return fmt.Errorf("%w: %s has no key for node %d", ErrDesync, ch, i)
	}
	c.SetValue(k, v)
	return nil
}

func (m *Model) nodeEdit(i int, kind events.Kind, set func() error) error {
	return m.apply(func() ([]events.Event, error) {
		if err := m.checkIndex(i); err != nil {
			return nil, err
		}
		if err := set(); err != nil {
			return nil, err
		}
		return []events.Event{{Kind: kind, Index: i, Timestamp: m.d.nodes[i].Timestamp}}, nil
	})
}

// SetNodeTilt sets the roll angle in degrees at node i.
func (m *Model) SetNodeTilt(i int, deg float64) error {
	return m.nodeEdit(i, events.NodeTiltChanged, func() error {
		return m.setNodeKey(i, curve.Tilt, deg)
	})
}

// SetNodeEase sets the playback rate at node i.
func (m *Model) SetNodeEase(i int, v float64) error {
	return m.nodeEdit(i, events.NodeEaseChanged, func() error {
		return m.setNodeKey(i, curve.Ease, v)
	})
}

// SetNodeRotationPoint sets the rotation path point at node i.
func (m *Model) SetNodeRotationPoint(i int, p model.Vec3) error {
	return m.nodeEdit(i, events.RotationPointChanged, func() error {
		for axis, ch := range [3]curve.Channel{curve.RotationX, curve.RotationY, curve.RotationZ} {
			if err := m.setNodeKey(i, ch, p[axis]); err != nil {
				return err
			}
		}
		return nil
	})
}
