package driver

import "fmt"

// PlaybackState is the driver's position in the Stopped/Playing/Paused
// state machine.
type PlaybackState int

// Playback states.
const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

var stateNames = []string{"stopped", "playing", "paused"}

func (s PlaybackState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("PlaybackState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (d *Driver) transition(from []PlaybackState, to PlaybackState) error {
	for _, f := range from {
		if d.state == f {
			d.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.state, to)
}
