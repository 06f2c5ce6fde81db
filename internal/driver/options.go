package driver

import (
	"github.com/okian/animpath/internal/domain/dedupe"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/pkg/logger"
)

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithTarget sets where poses are applied.
func WithTarget(t Target) Option {
	return func(d *Driver) { d.target = t }
}

// WithRotationMode selects what the object looks at.
func WithRotationMode(m model.RotationMode) Option {
	return func(d *Driver) { d.rotation = m }
}

// WithSmoothing selects the rotation smoothing strategy.
func WithSmoothing(s Smoothing) Option {
	return func(d *Driver) { d.smoothing = s }
}

// WithForwardPointOffset sets the look-ahead, in normalized time, used by
// the Forward rotation mode.
func WithForwardPointOffset(offset float64) Option {
	return func(d *Driver) {
		if offset > 0 {
			d.forwardOffset = offset
		}
	}
}

// WithPositionLerpSpeed sets the fraction of the remaining distance covered
// per tick while playing. 1 snaps.
func WithPositionLerpSpeed(v float64) Option {
	return func(d *Driver) {
		if v > 0 && v <= 1 {
			d.lerpSpeed = v
		}
	}
}

// WithRotationSpeed sets the slerp rate per second.
func WithRotationSpeed(v float64) Option {
	return func(d *Driver) {
		if v > 0 {
			d.rotationSpeed = v
		}
	}
}

// WithTickRate sets the Run loop frequency in Hz.
func WithTickRate(hz int) Option {
	return func(d *Driver) {
		if hz > 0 {
			d.tickRate = hz
		}
	}
}

// WithLookAtPoint sets the fixed point for the Target rotation mode.
func WithLookAtPoint(p model.Vec3) Option {
	return func(d *Driver) { d.lookAt, d.hasLookAt = p, true }
}

// WithCrossingHandler adds a node crossing callback.
func WithCrossingHandler(h CrossingHandler) Option {
	return func(d *Driver) {
		if h != nil {
			d.handlers = append(d.handlers, h)
		}
	}
}

// WithTracker replaces the crossing tracker.
func WithTracker(t dedupe.Tracker) Option {
	return func(d *Driver) {
		if t != nil {
			d.tracker = t
		}
	}
}

// WithLogger sets a custom logger for the driver.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}
