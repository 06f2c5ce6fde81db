package api

// Sampling defaults for the path handler.
const (
	DefaultSamples            = 100
	MaxSamples                = 10000
	DefaultForwardPointOffset = 0.05
)

// Option configures the path handler.
type Option func(*PathHandler)

// WithDefaultSamples sets the point count used when /samples has no n.
func WithDefaultSamples(n int) Option {
	return func(h *PathHandler) {
		if n > 0 {
			h.samples = n
		}
	}
}

// WithMaxSamples caps n on /samples.
func WithMaxSamples(n int) Option {
	return func(h *PathHandler) {
		if n > 0 {
			h.maxSamples = n
		}
	}
}

// WithForwardPointOffset sets the lookahead reported by /sample.
func WithForwardPointOffset(offset float64) Option {
	return func(h *PathHandler) {
		if offset > 0 {
			h.forwardOffset = offset
		}
	}
}
