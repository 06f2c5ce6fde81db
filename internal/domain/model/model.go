// Package model contains the value types shared by the path packages.
package model

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a 3D vector in the local space of the path owner.
type Vec3 = mgl64.Vec3

// Node is an authored control point on the path.
type Node struct {
	Position Vec3
	// InTangent and OutTangent are slopes (units per normalized time) per axis.
	InTangent  Vec3
	OutTangent Vec3
	// Timestamp is the normalized time of the node in [0,1].
	Timestamp float64
}

// WrapMode resolves time values outside [0,1].
type WrapMode int

// Wrap modes.
const (
	Clamp WrapMode = iota
	Loop
	PingPong
)

var wrapModeNames = map[WrapMode]string{Clamp: "clamp", Loop: "loop", PingPong: "pingpong"}

func (w WrapMode) String() string {
	if s, ok := wrapModeNames[w]; ok {
		return s
	}
	return fmt.Sprintf("WrapMode(%d)", int(w))
}

// MarshalText implements encoding.TextMarshaler.
func (w WrapMode) MarshalText() ([]byte, error) {
	s, ok := wrapModeNames[w]
	if !ok {
		return nil, fmt.Errorf("invalid wrap mode %d", int(w))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WrapMode) UnmarshalText(b []byte) error {
	v, err := ParseWrapMode(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// ParseWrapMode parses "clamp", "loop" or "pingpong" (case-insensitive).
func ParseWrapMode(s string) (WrapMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clamp", "once":
		return Clamp, nil
	case "loop", "repeat":
		return Loop, nil
	case "pingpong", "ping_pong":
		return PingPong, nil
	}
	return Clamp, fmt.Errorf("unknown wrap mode %q", s)
}

// TangentMode controls how tangents follow node edits.
type TangentMode int

// Tangent modes.
const (
	Smooth TangentMode = iota
	Linear
	Free
)

var tangentModeNames = map[TangentMode]string{Smooth: "smooth", Linear: "linear", Free: "free"}

func (m TangentMode) String() string {
	if s, ok := tangentModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("TangentMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m TangentMode) MarshalText() ([]byte, error) {
	s, ok := tangentModeNames[m]
	if !ok {
		return nil, fmt.Errorf("invalid tangent mode %d", int(m))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *TangentMode) UnmarshalText(b []byte) error {
	v, err := ParseTangentMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseTangentMode parses "smooth", "linear" or "free" (case-insensitive).
func ParseTangentMode(s string) (TangentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "smooth":
		return Smooth, nil
	case "linear":
		return Linear, nil
	case "free":
		return Free, nil
	}
	return Smooth, fmt.Errorf("unknown tangent mode %q", s)
}

// RotationMode selects what the driver makes the animated object look at.
type RotationMode int

// Rotation modes.
const (
	RotateNone RotationMode = iota
	RotateForward
	RotateCustom
	RotateTarget
)

var rotationModeNames = map[RotationMode]string{
	RotateNone: "none", RotateForward: "forward", RotateCustom: "custom", RotateTarget: "target",
}

func (m RotationMode) String() string {
	if s, ok := rotationModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("RotationMode(%d)", int(m))
}

// ParseRotationMode parses "none", "forward", "custom" or "target".
func ParseRotationMode(s string) (RotationMode, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for m, name := range rotationModeNames {
		if name == want {
			return m, nil
		}
	}
	return RotateNone, fmt.Errorf("unknown rotation mode %q", s)
}
