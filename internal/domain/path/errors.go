package path

import (
	"errors"

	"github.com/okian/animpath/internal/domain/timesync"
)

var (
	// ErrInvalidTimestamp reports a node time outside (0,1) or too close to a neighbour.
	ErrInvalidTimestamp = errors.New("invalid node timestamp")
	// ErrBoundaryNode reports an edit that would remove or retime an endpoint,
	// or leave fewer than two nodes.
	ErrBoundaryNode = errors.New("boundary node")
	// ErrNodeNotFound reports an index outside the node list.
	ErrNodeNotFound = errors.New("node not found")
	// ErrReentrantMutation reports a mutation from inside a notification handler.
	ErrReentrantMutation = errors.New("path mutated from its own notification handler")
	// ErrTangentMode reports an edit the current tangent mode does not allow.
	ErrTangentMode = errors.New("not allowed in current tangent mode")
	// ErrChannelNotEditable reports a raw key edit on a derived channel.
	ErrChannelNotEditable = errors.New("channel not editable")
	// ErrInvalidState reports a persisted path that breaks the model invariants.
	ErrInvalidState = errors.New("invalid path state")
	// ErrDesync reports auxiliary curves that no longer cover every node timestamp.
	ErrDesync = timesync.ErrDesync
)
