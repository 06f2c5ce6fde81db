package driver

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/okian/animpath/internal/domain/model"
)

// Smoothing selects how the heading follows its look target while playing.
type Smoothing int

// Smoothing strategies.
const (
	// LookAt snaps the heading onto the target every tick.
	LookAt Smoothing = iota
	// Slerp turns towards the target by rotation speed * dt per tick.
	Slerp
)

func (s Smoothing) String() string {
	switch s {
	case LookAt:
		return "lookat"
	case Slerp:
		return "slerp"
	}
	return fmt.Sprintf("Smoothing(%d)", int(s))
}

// ParseSmoothing parses "lookat" or "slerp".
func ParseSmoothing(s string) (Smoothing, error) {
	switch s {
	case "lookat":
		return LookAt, nil
	case "slerp":
		return Slerp, nil
	}
	return LookAt, fmt.Errorf("unknown rotation smoothing %q", s)
}

const lookEpsilon = 1e-9

var (
	worldUp     = model.Vec3{0, 1, 0}
	fallbackUp  = model.Vec3{0, 0, 1}
	forwardAxis = model.Vec3{0, 0, 1}
)

// lookRotation returns the rotation taking local +Z onto dir with local +Y
// as close to world up as possible. It reports false for a zero direction.
func lookRotation(dir model.Vec3) (mgl64.Quat, bool) {
	if dir.Len() < lookEpsilon {
		return mgl64.QuatIdent(), false
	}
	f := dir.Normalize()
	up := worldUp
	if math.Abs(f.Dot(up)) > 1-lookEpsilon {
		up = fallbackUp
	}
	r := up.Cross(f).Normalize()
	u := f.Cross(r)
	return mgl64.Mat4ToQuat(mgl64.Mat3FromCols(r, u, f).Mat4()).Normalize(), true
}

func slerp(from, to mgl64.Quat, amount float64) mgl64.Quat {
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return mgl64.QuatSlerp(from, to, amount).Normalize()
}

// withTilt rolls heading by deg degrees about its own forward axis.
func withTilt(heading mgl64.Quat, deg float64) mgl64.Quat {
	return heading.Mul(mgl64.QuatRotate(mgl64.DegToRad(deg), forwardAxis))
}
