package service

import "errors"

// Service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("command queue full")
	ErrUnknownStore = errors.New("unknown store backend")
)
