// Package config defines process configuration and how it is loaded.
package config

import (
	"fmt"
	"math"

	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/driver"
)

// Supported asset store backends.
const (
	StoreFile   = "file"
	StoreGData  = "gdata"
	StoreMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the inspection API listen address, e.g. ":9080".
	// Empty disables the API.
	Addr string `koanf:"addr"`

	// Store selects the asset backend: file, gdata or memory.
	Store     string `koanf:"store"`
	AssetDir  string `koanf:"asset_dir"`
	AssetName string `koanf:"asset_name"`
	GDataApp  string `koanf:"gdata_app"`
	// Watch reloads the asset when its file changes. File store only.
	Watch bool `koanf:"watch"`

	MinNodeTimeSeparation float64 `koanf:"min_node_time_separation"`
	WrapMode              string  `koanf:"wrap_mode"`
	TangentMode           string  `koanf:"tangent_mode"`
	DefaultEase           float64 `koanf:"default_ease"`

	RotationMode       string  `koanf:"rotation_mode"`
	RotationSmoothing  string  `koanf:"rotation_smoothing"`
	ForwardPointOffset float64 `koanf:"forward_point_offset"`
	PositionLerpSpeed  float64 `koanf:"position_lerp_speed"`
	RotationSpeed      float64 `koanf:"rotation_speed"`
	TickRate           int     `koanf:"tick_rate"`
	AutoPlay           bool    `koanf:"auto_play"`

	// GizmoSamples is the default point count of GET /samples.
	GizmoSamples int `koanf:"gizmo_samples"`

	// CommandQueueSize bounds the pending edit commands.
	CommandQueueSize int `koanf:"command_queue_size"`

	// NodeEventsScript is an optional tengo script run on node crossings.
	NodeEventsScript string `koanf:"node_events_script"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		Store:                 StoreFile,
		AssetDir:              "assets",
		AssetName:             "path",
		GDataApp:              "animpath",
		MinNodeTimeSeparation: 0.001,
		WrapMode:              "clamp",
		TangentMode:           "smooth",
		DefaultEase:           0.1,
		RotationMode:          "forward",
		RotationSmoothing:     "slerp",
		ForwardPointOffset:    driver.DefaultForwardPointOffset,
		PositionLerpSpeed:     driver.DefaultPositionLerpSpeed,
		RotationSpeed:         driver.DefaultRotationSpeed,
		TickRate:              driver.DefaultTickRate,
		AutoPlay:              true,
		GizmoSamples:          100,
		CommandQueueSize:      1024,
	}
}

// Validate checks every field and reports the first problem as
// ErrInvalidConfig.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log_level %q", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return invalid("log_format %q", c.LogFormat)
	}
	switch c.Store {
	case StoreFile:
		if c.AssetDir == "" {
			return invalid("asset_dir must not be empty")
		}
	case StoreGData:
		if c.GDataApp == "" {
			return invalid("gdata_app must not be empty")
		}
	case StoreMemory:
	default:
		return invalid("store %q", c.Store)
	}
	if c.Watch && c.Store != StoreFile {
		return invalid("watch needs the file store")
	}
	if c.AssetName == "" {
		return invalid("asset_name must not be empty")
	}
	if !(c.MinNodeTimeSeparation > 0 && c.MinNodeTimeSeparation < 0.5) {
		return invalid("min_node_time_separation %v out of (0, 0.5)", c.MinNodeTimeSeparation)
	}
	if _, err := model.ParseWrapMode(c.WrapMode); err != nil {
		return invalid("%v", err)
	}
	if _, err := model.ParseTangentMode(c.TangentMode); err != nil {
		return invalid("%v", err)
	}
	if _, err := model.ParseRotationMode(c.RotationMode); err != nil {
		return invalid("%v", err)
	}
	if _, err := driver.ParseSmoothing(c.RotationSmoothing); err != nil {
		return invalid("%v", err)
	}
	if !finitePositive(c.DefaultEase) {
		return invalid("default_ease %v must be positive", c.DefaultEase)
	}
	if !(c.ForwardPointOffset > 0 && c.ForwardPointOffset < 1) {
		return invalid("forward_point_offset %v out of (0, 1)", c.ForwardPointOffset)
	}
	if !(c.PositionLerpSpeed > 0 && c.PositionLerpSpeed <= 1) {
		return invalid("position_lerp_speed %v out of (0, 1]", c.PositionLerpSpeed)
	}
	if !finitePositive(c.RotationSpeed) {
		return invalid("rotation_speed %v must be positive", c.RotationSpeed)
	}
	if c.TickRate <= 0 {
		return invalid("tick_rate %d must be positive", c.TickRate)
	}
	if c.GizmoSamples < 2 {
		return invalid("gizmo_samples %d must be at least 2", c.GizmoSamples)
	}
	if c.CommandQueueSize <= 0 {
		return invalid("command_queue_size %d must be positive", c.CommandQueueSize)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
