package timesync

import "errors"

var (
	// ErrDesync reports an auxiliary curve whose keys no longer cover every node timestamp.
	ErrDesync = errors.New("auxiliary curve out of sync with nodes")
	// ErrKeyTaken reports a node time that lands exactly on an existing auxiliary key.
	ErrKeyTaken = errors.New("auxiliary key already at node time")
)
