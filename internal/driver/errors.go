package driver

import "errors"

// ErrInvalidTransition is returned when a playback command does not apply
// to the current state, e.g. Pause while stopped.
var ErrInvalidTransition = errors.New("invalid playback transition")
