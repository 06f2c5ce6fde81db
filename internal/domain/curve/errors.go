package curve

import "errors"

// Sentinel kinds for curve errors.
var (
	// ErrOutOfRangeQuery is returned when a non-finite time or a time outside
	// [0,1] reaches segment lookup.
	ErrOutOfRangeQuery = errors.New("query time out of range")
	ErrDuplicateKey    = errors.New("key already exists at time")
	ErrKeyNotFound     = errors.New("key not found")
	ErrUnorderedKeys   = errors.New("key times must be strictly increasing")
)
