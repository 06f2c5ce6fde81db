// Package edit describes path edits as values so they can be queued and
// applied by a single writer.
package edit

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/animpath/internal/domain/curve"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/path"
)

// Kind names a path edit.
type Kind string

// Edit kinds.
const (
	AddNode          Kind = "add_node"
	RemoveNode       Kind = "remove_node"
	MoveNode         Kind = "move_node"
	RetimeNode       Kind = "retime_node"
	SetTangentMode   Kind = "set_tangent_mode"
	SetNodeTangents  Kind = "set_node_tangents"
	SetWrapMode      Kind = "set_wrap_mode"
	SetNodeTilt      Kind = "set_node_tilt"
	SetNodeEase      Kind = "set_node_ease"
	SetRotationPoint Kind = "set_rotation_point"
	AddKey           Kind = "add_key"
	RemoveKey        Kind = "remove_key"
	Reset            Kind = "reset"
	Replace          Kind = "replace"
)

// ErrUnknownKind is returned for a command whose kind is not an edit.
var ErrUnknownKind = errors.New("unknown edit kind")

// Command is one queued edit. Only the fields its Kind reads are used.
type Command struct {
	ID       string
	Kind     Kind
	Index    int
	Position model.Vec3
	In       model.Vec3
	Out      model.Vec3
	// Time is the node timestamp for AddNode when HasTime is set, the new
	// timestamp for RetimeNode and the key time for key edits.
	Time        float64
	HasTime     bool
	Value       float64
	Channel     curve.Channel
	WrapMode    model.WrapMode
	TangentMode model.TangentMode
	State       *path.State

	// Reply receives the result when set. It should be buffered; the
	// editor never blocks on it.
	Reply chan Result
}

// Result reports the outcome of a command.
type Result struct {
	ID      string
	Kind    Kind
	Index   int
	Version uint64
	Err     error
}

// New returns a command of kind k with a fresh id.
func New(k Kind) Command {
	return Command{ID: uuid.NewString(), Kind: k}
}

// Apply runs c against m.
func Apply(m *path.Model, c Command) Result {
	res := Result{ID: c.ID, Kind: c.Kind, Index: c.Index}
	switch c.Kind {
	case AddNode:
		var at []float64
		if c.HasTime {
			at = append(at, c.Time)
		}
		res.Index, res.Err = m.AddNode(c.Position, at...)
	case RemoveNode:
		res.Err = m.RemoveNode(c.Index)
	case MoveNode:
		res.Err = m.MoveNode(c.Index, c.Position)
	case RetimeNode:
		res.Err = m.RetimeNode(c.Index, c.Time)
	case SetTangentMode:
		res.Err = m.SetTangentMode(c.TangentMode)
	case SetNodeTangents:
		res.Err = m.SetNodeTangents(c.Index, c.In, c.Out)
	case SetWrapMode:
		res.Err = m.SetWrapMode(c.WrapMode)
	case SetNodeTilt:
		res.Err = m.SetNodeTilt(c.Index, c.Value)
	case SetNodeEase:
		res.Err = m.SetNodeEase(c.Index, c.Value)
	case SetRotationPoint:
		res.Err = m.SetNodeRotationPoint(c.Index, c.Position)
	case AddKey:
		res.Err = m.AddKey(c.Channel, c.Time, c.Value)
	case RemoveKey:
		res.Err = m.RemoveKey(c.Channel, c.Time)
	case Reset:
		res.Err = m.Reset()
	case Replace:
		if c.State == nil {
			res.Err = fmt.Errorf("%w: replace without state", path.ErrInvalidState)
			break
		}
		res.Err = m.Replace(*c.State)
	default:
		res.Err = fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	res.Version = m.Version()
	return res
}

// Reason maps an edit error to a short label for metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, path.ErrReentrantMutation):
		return "reentrant"
	case errors.Is(err, path.ErrDesync):
		return "desync"
	case errors.Is(err, path.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, path.ErrBoundaryNode):
		return "boundary_node"
	case errors.Is(err, path.ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, path.ErrNodeNotFound):
		return "node_not_found"
	case errors.Is(err, path.ErrTangentMode):
		return "tangent_mode"
	case errors.Is(err, path.ErrChannelNotEditable):
		return "channel_not_editable"
	case errors.Is(err, curve.ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	default:
		return "error"
	}
}
