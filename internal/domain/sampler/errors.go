package sampler

import "github.com/okian/animpath/internal/domain/curve"

// ErrOutOfRangeQuery is returned when a time cannot be resolved into [0,1].
var ErrOutOfRangeQuery = curve.ErrOutOfRangeQuery
