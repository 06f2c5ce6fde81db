// Package driver advances playback along a path and turns samples into
// poses for a host transform.
package driver

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/okian/animpath/internal/domain/dedupe"
	"github.com/okian/animpath/internal/domain/events"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/path"
	"github.com/okian/animpath/internal/domain/sampler"
	"github.com/okian/animpath/pkg/logger"
	"github.com/okian/animpath/pkg/metrics"
)

// Default driver configuration constants.
const (
	DefaultForwardPointOffset = 0.05
	DefaultPositionLerpSpeed  = 0.1
	DefaultRotationSpeed      = 3.0
	DefaultTickRate           = 60

	ShortJumpValue = 0.002
	LongJumpValue  = 0.01

	nodeEpsilon = 1e-6
)

// Pose is where the animated object should be after a tick.
type Pose struct {
	Position  model.Vec3 `json:"position"`
	Rotation  mgl64.Quat `json:"rotation"`
	Tilt      float64    `json:"tilt"`
	TimeRatio float64    `json:"time_ratio"`
}

// Target receives poses, typically a host scene-graph transform.
type Target interface {
	Apply(ctx context.Context, p Pose) error
}

// Snapshotter provides the latest published path.
type Snapshotter interface {
	Snapshot() *path.Snapshot
}

// Driver owns the playback state and integrates the ease curve over time.
type Driver struct {
	src      Snapshotter
	target   Target
	handlers []CrossingHandler
	tracker  dedupe.Tracker

	rotation      model.RotationMode
	smoothing     Smoothing
	forwardOffset float64
	lerpSpeed     float64
	rotationSpeed float64
	tickRate      int
	lookAt        model.Vec3
	hasLookAt     bool

	mu      sync.Mutex
	state   PlaybackState
	ratio   float64
	pose    Pose
	heading mgl64.Quat
	posed   bool
	dirty   bool
	version uint64

	logger logger.Logger
}

// New creates a stopped driver reading paths from src.
func New(src Snapshotter, opts ...Option) *Driver {
	d := &Driver{
		src:           src,
		tracker:       dedupe.NewTracker(),
		rotation:      model.RotateForward,
		smoothing:     Slerp,
		forwardOffset: DefaultForwardPointOffset,
		lerpSpeed:     DefaultPositionLerpSpeed,
		rotationSpeed: DefaultRotationSpeed,
		tickRate:      DefaultTickRate,
		heading:       mgl64.QuatIdent(),
		dirty:         true,
		logger:        logger.Get().Named("driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pose.Rotation = d.heading
	metrics.UpdateDriverState(d.state.String(), stateNames)
	return d
}

// State returns the playback state.
func (d *Driver) State() PlaybackState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// TimeRatio returns the raw, unwrapped time ratio.
func (d *Driver) TimeRatio() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ratio
}

// Pose returns the last computed pose.
func (d *Driver) Pose() Pose {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pose
}

// Status is a consistent view of the playback state.
type Status struct {
	State     PlaybackState `json:"state"`
	TimeRatio float64       `json:"time_ratio"`
	Pose      Pose          `json:"pose"`
	Version   uint64        `json:"path_version"`
}

// Status returns state, ratio and pose read under one lock.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{State: d.state, TimeRatio: d.ratio, Pose: d.pose, Version: d.version}
}

// Start begins playback from a stopped driver.
func (d *Driver) Start() error {
	return d.setState([]PlaybackState{Stopped}, Playing)
}

// Pause halts time integration, keeping the current ratio.
func (d *Driver) Pause() error {
	return d.setState([]PlaybackState{Playing}, Paused)
}

// Resume continues a paused playback.
func (d *Driver) Resume() error {
	return d.setState([]PlaybackState{Paused}, Playing)
}

// Stop halts playback and rewinds to the start of the path.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Stopped
	d.ratio = 0
	d.dirty = true
	d.tracker.Reset()
	metrics.UpdateDriverState(d.state.String(), stateNames)
	metrics.UpdateDriverTimeRatio(0)
	return nil
}

func (d *Driver) setState(from []PlaybackState, to PlaybackState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.transition(from, to); err != nil {
		return err
	}
	metrics.UpdateDriverState(d.state.String(), stateNames)
	return nil
}

// SetLookAtPoint sets the fixed point used by the Target rotation mode.
func (d *Driver) SetLookAtPoint(p model.Vec3) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookAt, d.hasLookAt = p, true
	d.dirty = true
}

// Seek moves playback to t. With Clamp wrap t is saturated to [0,1].
func (d *Driver) Seek(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: seek to %v", sampler.ErrOutOfRangeQuery, t)
	}
	snap := d.src.Snapshot()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seekLocked(snap, t)
	return nil
}

func (d *Driver) seekLocked(snap *path.Snapshot, t float64) {
	if snap != nil && snap.WrapMode() == model.Clamp {
		t = math.Max(0, math.Min(1, t))
	}
	d.ratio = t
	d.dirty = true
	d.tracker.Reset()
	metrics.UpdateDriverTimeRatio(t)
}

// ShortJump moves playback by a small step forward or back.
func (d *Driver) ShortJump(forward bool) error {
	return d.jump(forward, ShortJumpValue)
}

// LongJump moves playback by a large step forward or back.
func (d *Driver) LongJump(forward bool) error {
	return d.jump(forward, LongJumpValue)
}

func (d *Driver) jump(forward bool, step float64) error {
	if !forward {
		step = -step
	}
	snap := d.src.Snapshot()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seekLocked(snap, d.ratio+step)
	return nil
}

// JumpToNode seeks to the next or previous node relative to the current
// wrapped position. At the first or last node it stays put.
func (d *Driver) JumpToNode(next bool) error {
	snap := d.src.Snapshot()
	if snap == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := sampler.Resolve(snap.WrapMode(), d.ratio)
	if err != nil {
		return err
	}
	ts := snap.NodeTimestamps()
	target := u
	if next {
		for _, t := range ts {
			if t > u+nodeEpsilon {
				target = t
				break
			}
		}
	} else {
		for i := len(ts) - 1; i >= 0; i-- {
			if ts[i] < u-nodeEpsilon {
				target = ts[i]
				break
			}
		}
	}
	d.seekLocked(snap, target)
	return nil
}

// Attach marks the pose dirty whenever the path changes so that a paused
// or stopped driver still follows edits. Edits that shift node indices
// also forget recorded crossings.
func (d *Driver) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(func(e events.Event) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.dirty = true
		switch e.Kind {
		case events.NodeAdded, events.NodeRemoved, events.PathReset:
			d.tracker.Reset()
		}
	})
}

// Tick advances playback by dt seconds and returns the resulting pose. A
// failed sample keeps the previous pose. The returned error only reports a
// failure of the target.
func (d *Driver) Tick(ctx context.Context, dt float64) (Pose, error) {
	start := time.Now()
	snap := d.src.Snapshot()
	if snap == nil {
		return d.Pose(), nil
	}

	d.mu.Lock()
	if snap.Version() != d.version {
		d.version = snap.Version()
		d.dirty = true
	}
	s := snap.Sampler()
	playing := d.state == Playing
	prevState := d.state

	var fired []Crossing
	if playing {
		next, err := d.advance(s, dt)
		if err != nil {
			pose := d.holdLocked(ctx, "ease", err)
			d.mu.Unlock()
			return pose, nil
		}
		fired = d.cross(ctx, s.WrapMode(), snap.NodeTimestamps(), d.ratio, next)
		d.ratio = next
		if s.WrapMode() == model.Clamp && next >= 1 {
			d.state = Paused
		}
	} else if !d.dirty && d.posed {
		pose := d.pose
		d.mu.Unlock()
		return pose, nil
	}

	pose, heading, query, err := d.evaluate(s, dt, playing)
	if err != nil {
		pose = d.holdLocked(ctx, query, err)
		d.mu.Unlock()
		return pose, nil
	}
	d.pose, d.heading = pose, heading
	d.posed, d.dirty = true, false
	state := d.state
	d.mu.Unlock()

	if state != prevState {
		metrics.UpdateDriverState(state.String(), stateNames)
		d.logger.Debug(ctx, "playback reached the end", logger.String("state", state.String()))
	}
	metrics.UpdateDriverTimeRatio(pose.TimeRatio)
	for _, c := range fired {
		metrics.RecordNodeCrossing()
		for _, h := range d.handlers {
			h(ctx, c)
		}
	}

	var applyErr error
	if d.target != nil {
		if err := d.target.Apply(ctx, pose); err != nil {
			applyErr = fmt.Errorf("apply pose: %w", err)
		}
	}
	metrics.RecordDriverTick(float64(time.Since(start).Microseconds()) / 1000)
	return pose, applyErr
}

func (d *Driver) advance(s *sampler.Sampler, dt float64) (float64, error) {
	ease, err := s.EaseAt(d.ratio)
	if err != nil {
		return 0, err
	}
	next := d.ratio + ease*dt
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return 0, fmt.Errorf("%w: time ratio %v", sampler.ErrOutOfRangeQuery, next)
	}
	if s.WrapMode() == model.Clamp {
		next = math.Max(0, math.Min(1, next))
	}
	return next, nil
}

// evaluate computes the pose at the current ratio. smooth selects lerp and
// slerp towards the samples instead of snapping onto them.
func (d *Driver) evaluate(s *sampler.Sampler, dt float64, smooth bool) (Pose, mgl64.Quat, string, error) {
	smooth = smooth && d.posed
	pos, err := s.PositionAt(d.ratio)
	if err != nil {
		return Pose{}, d.heading, "position", err
	}
	if smooth {
		pos = d.pose.Position.Add(pos.Sub(d.pose.Position).Mul(d.lerpSpeed))
	}

	heading := d.heading
	var look model.Vec3
	aim := true
	switch d.rotation {
	case model.RotateForward:
		look, err = s.ForwardPointAt(d.ratio, d.forwardOffset)
	case model.RotateCustom:
		look, err = s.RotationTargetAt(d.ratio)
	case model.RotateTarget:
		look, aim = d.lookAt, d.hasLookAt
	default:
		aim = false
	}
	if err != nil {
		return Pose{}, d.heading, "rotation", err
	}
	if aim {
		if q, ok := lookRotation(look.Sub(pos)); ok {
			if smooth && d.smoothing == Slerp {
				heading = slerp(heading, q, math.Min(1, d.rotationSpeed*dt))
			} else {
				heading = q
			}
		}
	}

	tilt, err := s.TiltAt(d.ratio)
	if err != nil {
		return Pose{}, d.heading, "tilt", err
	}
	return Pose{
		Position:  pos,
		Rotation:  withTilt(heading, tilt),
		Tilt:      tilt,
		TimeRatio: d.ratio,
	}, heading, "", nil
}

func (d *Driver) holdLocked(ctx context.Context, query string, err error) Pose {
	metrics.RecordSampleFailure(query)
	metrics.RecordHeldPose()
	d.logger.Warn(ctx, "sample failed, holding pose",
		logger.String("query", query),
		logger.Float64("time_ratio", d.ratio),
		logger.Error(err),
	)
	return d.pose
}

// Run ticks the driver at its tick rate until ctx is canceled.
func (d *Driver) Run(ctx context.Context) {
	interval := time.Second / time.Duration(d.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if _, err := d.Tick(ctx, dt); err != nil {
				d.logger.Warn(ctx, "tick failed", logger.Error(err))
			}
		}
	}
}
