// Package path holds the authoritative node list of an animation path and
// the curves derived from it.
//
// A Model is not safe for concurrent use. All mutations go through one
// writer; readers on other goroutines use a Snapshot.
package path

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/okian/animpath/internal/domain/curve"
	"github.com/okian/animpath/internal/domain/events"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/sampler"
	"github.com/okian/animpath/internal/domain/timesync"
)

const (
	// DefaultMinNodeTimeSeparation is the smallest normalized time between two nodes.
	DefaultMinNodeTimeSeparation = 0.001
	// DefaultEase is the ease rate keyed on a new path.
	DefaultEase = 0.1

	// searchSteps is the number of samples per segment when locating the
	// segment nearest to a new node position.
	searchSteps = 64
)

type settings struct {
	minSep  float64
	start   model.Vec3
	end     model.Vec3
	tangent model.TangentMode
	wrap    model.WrapMode
	ease    float64
	shape   bool
	bus     *events.Bus
}

// data is everything a mutation may change. It is cloned before each
// mutation and restored on failure.
type data struct {
	nodes   []model.Node
	aux     map[curve.Channel]*curve.Curve
	wrap    model.WrapMode
	tangent model.TangentMode
}

func (d *data) clone() *data {
	out := &data{
		nodes:   make([]model.Node, len(d.nodes)),
		aux:     make(map[curve.Channel]*curve.Curve, len(d.aux)),
		wrap:    d.wrap,
		tangent: d.tangent,
	}
	copy(out.nodes, d.nodes)
	for ch, c := range d.aux {
		out.aux[ch] = c.Clone()
	}
	return out
}

// Model is the path: ordered nodes, the position curves built from them and
// the auxiliary ease, tilt and rotation curves.
type Model struct {
	cfg       settings
	d         *data
	pos       [3]*curve.Curve
	version   uint64
	notifying bool
}

// New returns the default two-node path.
func New(opts ...Option) (*Model, error) {
	cfg := newSettings(opts...)
	m := &Model{cfg: cfg, d: &data{wrap: cfg.wrap, tangent: cfg.tangent}}
	m.d.nodes = m.defaultNodes()
	m.d.aux = m.defaultAux()
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

func newSettings(opts ...Option) settings {
	cfg := settings{
		minSep:  DefaultMinNodeTimeSeparation,
		end:     model.Vec3{10, 0, 0},
		tangent: model.Smooth,
		wrap:    model.Clamp,
		ease:    DefaultEase,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bus == nil {
		cfg.bus = events.NewBus()
	}
	return cfg
}

func (m *Model) defaultNodes() []model.Node {
	nodes := []model.Node{
		{Position: m.cfg.start, Timestamp: 0},
		{Position: m.cfg.end, Timestamp: 1},
	}
	if m.d.tangent == model.Free {
		applyTangents(nodes, model.Smooth)
	} else {
		applyTangents(nodes, m.d.tangent)
	}
	return nodes
}

// defaultAux keys ease at the default rate, tilt flat, and the rotation path
// on the straight line between the endpoints.
func (m *Model) defaultAux() map[curve.Channel]*curve.Curve {
	flat := func(v float64) *curve.Curve {
		c, _ := curve.New(curve.Key{Time: 0, Value: v}, curve.Key{Time: 1, Value: v})
		return c
	}
	aux := map[curve.Channel]*curve.Curve{
		curve.Ease: flat(m.cfg.ease),
		curve.Tilt: flat(0),
	}
	for axis, ch := range [3]curve.Channel{curve.RotationX, curve.RotationY, curve.RotationZ} {
		a, b := m.cfg.start[axis], m.cfg.end[axis]
		c, _ := curve.New(
			curve.Key{Time: 0, Value: a, OutTangent: b - a, InTangent: b - a},
			curve.Key{Time: 1, Value: b, OutTangent: b - a, InTangent: b - a},
		)
		aux[ch] = c
	}
	return aux
}

// keyTolerance is how far an auxiliary key may sit from a node timestamp and
// still belong to it. Neighbouring nodes never share a window.
func (m *Model) keyTolerance() float64 {
	return math.Min(timesync.Tolerance, m.cfg.minSep/2)
}

func (m *Model) syncer() *timesync.Syncer {
	return timesync.New(m.d.aux,
		timesync.WithMatchTolerance(m.keyTolerance()),
		timesync.WithShapePreserving(m.cfg.shape),
	)
}

// Bus returns the bus the model publishes on.
func (m *Model) Bus() *events.Bus { return m.cfg.bus }

// Subscribe registers h for notifications from this model.
func (m *Model) Subscribe(h events.Handler) events.Subscription {
	return m.cfg.bus.Subscribe(h)
}

// Version increases with every accepted mutation.
func (m *Model) Version() uint64 { return m.version }

// MinNodeTimeSeparation returns the configured node separation.
func (m *Model) MinNodeTimeSeparation() float64 { return m.cfg.minSep }

// apply runs fn as one transaction: invariants are checked afterwards and
// the previous state is restored when fn or the check fails.
func (m *Model) apply(fn func() ([]events.Event, error)) error {
	if m.notifying {
		return ErrReentrantMutation
	}
	prev := m.d.clone()
	prevPos := m.pos
	evs, err := fn()
	if err == nil {
		err = m.check()
	}
	if err != nil {
		m.d = prev
		m.pos = prevPos
		return err
	}
	m.version++
	m.notify(evs)
	return nil
}

func (m *Model) notify(evs []events.Event) {
	m.notifying = true
	defer func() { m.notifying = false }()
	for _, e := range evs {
		m.cfg.bus.Publish(e)
	}
}

// check validates the nodes, rebuilds the position curves and verifies the
// auxiliary keys.
func (m *Model) check() error {
	if err := validateNodes(m.d.nodes, m.cfg.minSep); err != nil {
		return err
	}
	if err := m.rebuild(); err != nil {
		return err
	}
	return m.syncer().Verify(m.timestamps())
}

func (m *Model) rebuild() error {
	var pos [3]*curve.Curve
	for axis := range pos {
		keys := make([]curve.Key, len(m.d.nodes))
		for i, n := range m.d.nodes {
			keys[i] = curve.Key{
				Time:       n.Timestamp,
				Value:      n.Position[axis],
				InTangent:  n.InTangent[axis],
				OutTangent: n.OutTangent[axis],
			}
		}
		c, err := curve.New(keys...)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTimestamp, err)
		}
		pos[axis] = c
	}
	m.pos = pos
	return nil
}

func validateNodes(nodes []model.Node, minSep float64) error {
	n := len(nodes)
	if n < 2 {
		return fmt.Errorf("%w: %d nodes", ErrBoundaryNode, n)
	}
	if nodes[0].Timestamp != 0 || nodes[n-1].Timestamp != 1 {
		return fmt.Errorf("%w: path spans [%v,%v]", ErrInvalidTimestamp, nodes[0].Timestamp, nodes[n-1].Timestamp)
	}
	for i, node := range nodes {
		if !finite(node.Position) || !finite(node.InTangent) || !finite(node.OutTangent) {
			return fmt.Errorf("%w: node %d has non-finite components", ErrInvalidState, i)
		}
		if i > 0 && node.Timestamp-nodes[i-1].Timestamp < minSep {
			return fmt.Errorf("%w: node %d at %v is within %v of %v",
				ErrInvalidTimestamp, i, node.Timestamp, minSep, nodes[i-1].Timestamp)
		}
	}
	return nil
}

func finite(v model.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (m *Model) timestamps() []float64 {
	return nodeTimestamps(m.d.nodes)
}

func nodeTimestamps(nodes []model.Node) []float64 {
	out := make([]float64, len(nodes))
	for i, n := range nodes {
		out[i] = n.Timestamp
	}
	return out
}

func nodePositions(nodes []model.Node) []model.Vec3 {
	out := make([]model.Vec3, len(nodes))
	for i, n := range nodes {
		out[i] = n.Position
	}
	return out
}

func (m *Model) checkIndex(i int) error {
	if i < 0 || i >= len(m.d.nodes) {
		return fmt.Errorf("%w: index %d of %d", ErrNodeNotFound, i, len(m.d.nodes))
	}
	return nil
}

func (m *Model) interior(i int) error {
	if err := m.checkIndex(i); err != nil {
		return err
	}
	if i == 0 || i == len(m.d.nodes)-1 {
		return fmt.Errorf("%w: index %d", ErrBoundaryNode, i)
	}
	return nil
}

// free reports an error when ts is not a usable interior node time.
func (m *Model) free(ts float64, skip int) error {
	if math.IsNaN(ts) || ts <= 0 || ts >= 1 {
		return fmt.Errorf("%w: %v outside (0,1)", ErrInvalidTimestamp, ts)
	}
	for i, n := range m.d.nodes {
		if i != skip && math.Abs(n.Timestamp-ts) < m.cfg.minSep {
			return fmt.Errorf("%w: %v within %v of node %d", ErrInvalidTimestamp, ts, m.cfg.minSep, i)
		}
	}
	return nil
}

// keyClash reports a node time that collides with an auxiliary key as an
// invalid timestamp.
func keyClash(err error) error {
	if errors.Is(err, timesync.ErrKeyTaken) || errors.Is(err, curve.ErrDuplicateKey) {
		return fmt.Errorf("%w: %w", ErrInvalidTimestamp, err)
	}
	return err
}

// AddNode inserts a node at pos and returns its index. Without a timestamp
// the node goes to the middle of the segment whose curve passes nearest to pos.
func (m *Model) AddNode(pos model.Vec3, at ...float64) (int, error) {
	idx := -1
	err := m.apply(func() ([]events.Event, error) {
		if !finite(pos) {
			return nil, fmt.Errorf("%w: non-finite position %v", ErrInvalidState, pos)
		}
		var ts float64
		if len(at) > 0 {
			ts = at[0]
		} else {
			ts = m.placement(pos)
		}
		if err := m.free(ts, -1); err != nil {
			return nil, err
		}
		idx = sort.Search(len(m.d.nodes), func(i int) bool { return m.d.nodes[i].Timestamp > ts })
		m.d.nodes = append(m.d.nodes, model.Node{})
		copy(m.d.nodes[idx+1:], m.d.nodes[idx:])
		m.d.nodes[idx] = model.Node{Position: pos, Timestamp: ts}
		if m.d.tangent == model.Free {
			t := smoothAt(m.d.nodes, idx)
			m.d.nodes[idx].InTangent, m.d.nodes[idx].OutTangent = t, t
		} else {
			applyTangents(m.d.nodes, m.d.tangent)
		}
		if err := m.syncer().OnNodeAdded(ts); err != nil {
			return nil, keyClash(err)
		}
		return []events.Event{{Kind: events.NodeAdded, Index: idx, Timestamp: ts}}, nil
	})
	if err != nil {
		return -1, err
	}
	return idx, nil
}

// placement returns the midpoint time of the segment passing nearest to pos.
func (m *Model) placement(pos model.Vec3) float64 {
	nodes := m.d.nodes
	best, bestDist := 0, math.Inf(1)
	for i := 0; i < len(nodes)-1; i++ {
		t0, t1 := nodes[i].Timestamp, nodes[i+1].Timestamp
		for k := 0; k <= searchSteps; k++ {
			p := m.positionAt(t0 + (t1-t0)*float64(k)/searchSteps)
			if d := p.Sub(pos).LenSqr(); d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	return (nodes[best].Timestamp + nodes[best+1].Timestamp) / 2
}

func (m *Model) positionAt(t float64) model.Vec3 {
	var out model.Vec3
	for axis, c := range m.pos {
		out[axis], _ = c.Evaluate(math.Max(0, math.Min(1, t)))
	}
	return out
}

// RemoveNode deletes an interior node. Other timestamps are untouched.
func (m *Model) RemoveNode(i int) error {
	return m.apply(func() ([]events.Event, error) {
		if err := m.interior(i); err != nil {
			return nil, err
		}
		ts := m.d.nodes[i].Timestamp
		m.d.nodes = append(m.d.nodes[:i], m.d.nodes[i+1:]...)
		applyTangents(m.d.nodes, m.d.tangent)
		if err := m.syncer().OnNodeRemoved(ts); err != nil {
			return nil, err
		}
		return []events.Event{{Kind: events.NodeRemoved, Index: i, Timestamp: ts}}, nil
	})
}

// MoveNode changes the position of node i.
func (m *Model) MoveNode(i int, pos model.Vec3) error {
	return m.apply(func() ([]events.Event, error) {
		if err := m.checkIndex(i); err != nil {
			return nil, err
		}
		if !finite(pos) {
			return nil, fmt.Errorf("%w: non-finite position %v", ErrInvalidState, pos)
		}
		m.d.nodes[i].Position = pos
		applyTangents(m.d.nodes, m.d.tangent)
		return []events.Event{{Kind: events.NodePositionChanged, Index: i, Timestamp: m.d.nodes[i].Timestamp}}, nil
	})
}

// SetTangentMode switches the tangent mode and recomputes tangents for it.
func (m *Model) SetTangentMode(mode model.TangentMode) error {
	return m.apply(func() ([]events.Event, error) {
		if _, err := mode.MarshalText(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTangentMode, err)
		}
		m.d.tangent = mode
		applyTangents(m.d.nodes, mode)
		return []events.Event{{Kind: events.CurveChanged, Index: -1}}, nil
	})
}

// SetNodeTangents sets the tangents of node i. Only Free mode keeps user tangents.
func (m *Model) SetNodeTangents(i int, in, out model.Vec3) error {
	return m.apply(func() ([]events.Event, error) {
		if err := m.checkIndex(i); err != nil {
			return nil, err
		}
		if m.d.tangent != model.Free {
			return nil, fmt.Errorf("%w: %s", ErrTangentMode, m.d.tangent)
		}
		m.d.nodes[i].InTangent = in
		m.d.nodes[i].OutTangent = out
		return []events.Event{{Kind: events.CurveChanged, Index: i, Timestamp: m.d.nodes[i].Timestamp}}, nil
	})
}

// RetimeNode moves interior node i to ts.
func (m *Model) RetimeNode(i int, ts float64) error {
	return m.apply(func() ([]events.Event, error) {
		if err := m.interior(i); err != nil {
			return nil, err
		}
		if err := m.free(ts, i); err != nil {
			return nil, err
		}
		prev, next := m.d.nodes[i-1].Timestamp, m.d.nodes[i+1].Timestamp
		if ts <= prev || ts >= next {
			return nil, fmt.Errorf("%w: %v outside (%v,%v)", ErrInvalidTimestamp, ts, prev, next)
		}
		old := m.d.nodes[i].Timestamp
		m.d.nodes[i].Timestamp = ts
		applyTangents(m.d.nodes, m.d.tangent)
		if err := m.syncer().OnNodeRetimed(old, ts); err != nil {
			return nil, keyClash(err)
		}
		return []events.Event{{Kind: events.NodeTimeChanged, Index: i, Timestamp: ts, Previous: old}}, nil
	})
}

// Reset restores the two default endpoints and drops every auxiliary key
// except the endpoint keys.
func (m *Model) Reset() error {
	return m.apply(func() ([]events.Event, error) {
		m.d.nodes = m.defaultNodes()
		if err := m.syncer().Reset(0, 1); err != nil {
			return nil, err
		}
		return []events.Event{{Kind: events.PathReset, Index: -1}}, nil
	})
}

// SetWrapMode changes how out-of-range times resolve.
func (m *Model) SetWrapMode(w model.WrapMode) error {
	return m.apply(func() ([]events.Event, error) {
		if _, err := w.MarshalText(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		m.d.wrap = w
		return []events.Event{{Kind: events.CurveChanged, Index: -1}}, nil
	})
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.d.nodes) }

// Node returns node i.
func (m *Model) Node(i int) (model.Node, error) {
	if err := m.checkIndex(i); err != nil {
		return model.Node{}, err
	}
	return m.d.nodes[i], nil
}

// Nodes returns a copy of the nodes.
func (m *Model) Nodes() []model.Node {
	out := make([]model.Node, len(m.d.nodes))
	copy(out, m.d.nodes)
	return out
}

// NodeTimestamps returns the node times in order.
func (m *Model) NodeTimestamps() []float64 { return m.timestamps() }

// NodePositions returns the node positions in order.
func (m *Model) NodePositions() []model.Vec3 { return nodePositions(m.d.nodes) }

// WrapMode returns the wrap mode.
func (m *Model) WrapMode() model.WrapMode { return m.d.wrap }

// TangentMode returns the tangent mode.
func (m *Model) TangentMode() model.TangentMode { return m.d.tangent }

// Curve returns a copy of the curve for ch, or nil for an unknown channel.
func (m *Model) Curve(ch curve.Channel) *curve.Curve {
	if c := m.curve(ch); c != nil {
		return c.Clone()
	}
	return nil
}

func (m *Model) curve(ch curve.Channel) *curve.Curve {
	if ch.IsPosition() {
		return m.pos[ch-curve.PositionX]
	}
	return m.d.aux[ch]
}

// Sampler returns a sampler reading the live model. It must not be used
// concurrently with mutations.
func (m *Model) Sampler(opts ...sampler.Option) *sampler.Sampler {
	return sampler.New(liveSource{m}, opts...)
}

type liveSource struct{ m *Model }

func (s liveSource) Curve(ch curve.Channel) *curve.Curve { return s.m.curve(ch) }
func (s liveSource) WrapMode() model.WrapMode            { return s.m.d.wrap }

// SampleForPoints returns n positions evenly spaced in time over the whole path.
func (m *Model) SampleForPoints(n int) []model.Vec3 {
	return sampleForPoints(m.Sampler(sampler.WithWrapMode(model.Clamp)), n)
}

func sampleForPoints(s *sampler.Sampler, n int) []model.Vec3 {
	if n <= 0 {
		return nil
	}
	out := make([]model.Vec3, n)
	if n == 1 {
		out[0], _ = s.PositionAt(0)
		return out
	}
	for k := range out {
		out[k], _ = s.PositionAt(float64(k) / float64(n-1))
	}
	return out
}
