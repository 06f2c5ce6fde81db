package path

import (
	"errors"
	"fmt"

	"github.com/okian/animpath/internal/domain/curve"
	"github.com/okian/animpath/internal/domain/events"
	"github.com/okian/animpath/internal/domain/model"
)

// StateVersion is the asset layout version written by State.
const StateVersion = 1

// State is the persisted form of a path.
type State struct {
	Version     int                    `yaml:"version" json:"version"`
	WrapMode    model.WrapMode         `yaml:"wrap_mode" json:"wrap_mode"`
	TangentMode model.TangentMode      `yaml:"tangent_mode" json:"tangent_mode"`
	Nodes       []NodeState            `yaml:"nodes" json:"nodes"`
	Curves      map[string][]curve.Key `yaml:"curves" json:"curves"`
}

// NodeState is one persisted node.
type NodeState struct {
	Position   model.Vec3 `yaml:"position,flow" json:"position"`
	InTangent  model.Vec3 `yaml:"in_tangent,flow" json:"in_tangent"`
	OutTangent model.Vec3 `yaml:"out_tangent,flow" json:"out_tangent"`
	Timestamp  float64    `yaml:"timestamp" json:"timestamp"`
}

func stateOf(nodes []model.Node, aux map[curve.Channel]*curve.Curve, wrap model.WrapMode, tangent model.TangentMode) State {
	st := State{
		Version:     StateVersion,
		WrapMode:    wrap,
		TangentMode: tangent,
		Nodes:       make([]NodeState, len(nodes)),
		Curves:      make(map[string][]curve.Key, len(aux)),
	}
	for i, n := range nodes {
		st.Nodes[i] = NodeState{
			Position:   n.Position,
			InTangent:  n.InTangent,
			OutTangent: n.OutTangent,
			Timestamp:  n.Timestamp,
		}
	}
	for ch, c := range aux {
		st.Curves[ch.String()] = c.Keys()
	}
	return st
}

// State returns the persisted form of the model.
func (m *Model) State() State {
	return stateOf(m.d.nodes, m.d.aux, m.d.wrap, m.d.tangent)
}

// FromState restores a model from st. Every invariant of a live model is
// checked; a violation is reported as ErrInvalidState wrapping the cause.
func FromState(st State, opts ...Option) (*Model, error) {
	d, err := decodeState(st)
	if err != nil {
		return nil, err
	}
	m := &Model{cfg: newSettings(opts...), d: d}
	if err := m.check(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return m, nil
}

// Replace swaps the whole path for st, keeping subscribers and settings.
// It publishes PathReset.
func (m *Model) Replace(st State) error {
	d, err := decodeState(st)
	if err != nil {
		return err
	}
	err = m.apply(func() ([]events.Event, error) {
		m.d = d
		return []events.Event{{Kind: events.PathReset, Index: -1}}, nil
	})
	if err != nil && !errors.Is(err, ErrReentrantMutation) {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return err
}

func decodeState(st State) (*data, error) {
	if st.Version > StateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidState, st.Version)
	}
	if _, err := st.WrapMode.MarshalText(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if _, err := st.TangentMode.MarshalText(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	d := &data{
		nodes:   make([]model.Node, len(st.Nodes)),
		aux:     make(map[curve.Channel]*curve.Curve, len(curve.Auxiliary)),
		wrap:    st.WrapMode,
		tangent: st.TangentMode,
	}
	for i, n := range st.Nodes {
		d.nodes[i] = model.Node{
			Position:   n.Position,
			InTangent:  n.InTangent,
			OutTangent: n.OutTangent,
			Timestamp:  n.Timestamp,
		}
	}
	for name, keys := range st.Curves {
		ch, err := curve.ParseChannel(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		if ch.IsPosition() {
			return nil, fmt.Errorf("%w: position curve %s is derived from nodes", ErrInvalidState, ch)
		}
		c, err := curve.New(keys...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidState, ch, err)
		}
		d.aux[ch] = c
	}
	for _, ch := range curve.Auxiliary {
		if _, ok := d.aux[ch]; !ok {
			return nil, fmt.Errorf("%w: missing %s curve", ErrInvalidState, ch)
		}
	}
	return d, nil
}
