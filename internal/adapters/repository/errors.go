package repository

import "errors"

// Sentinel kinds for asset store errors.
var (
	ErrNotFound    = errors.New("asset not found")
	ErrInvalidName = errors.New("invalid asset name")
	ErrCorrupt     = errors.New("corrupt asset")
)

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
