package curve

import (
	"fmt"
	"strings"
)

// Channel identifies one animated scalar curve of a path.
type Channel int

// Channels. Position channels are derived from the nodes; the others are
// auxiliary curves kept in step with node timestamps.
const (
	PositionX Channel = iota
	PositionY
	PositionZ
	RotationX
	RotationY
	RotationZ
	Ease
	Tilt
)

var channelNames = [...]string{
	PositionX: "position_x",
	PositionY: "position_y",
	PositionZ: "position_z",
	RotationX: "rotation_x",
	RotationY: "rotation_y",
	RotationZ: "rotation_z",
	Ease:      "ease",
	Tilt:      "tilt",
}

// Auxiliary lists the channels that must carry a key at every node timestamp.
var Auxiliary = []Channel{Ease, Tilt, RotationX, RotationY, RotationZ}

func (c Channel) String() string {
	if c >= 0 && int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// IsPosition reports whether c is derived from node positions.
func (c Channel) IsPosition() bool {
	return c == PositionX || c == PositionY || c == PositionZ
}

// Valid reports whether c names a known channel.
func (c Channel) Valid() bool {
	return c >= 0 && int(c) < len(channelNames)
}

// ParseChannel parses a channel name such as "tilt" or "rotation_x".
func ParseChannel(s string) (Channel, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, name := range channelNames {
		if name == want {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}
