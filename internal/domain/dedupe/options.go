package dedupe

// Option configures the in-memory tracker.
type Option func(*inMemoryTracker)

// WithMaxSize bounds the number of remembered crossings; the oldest are
// evicted first. Zero or less keeps every crossing.
func WithMaxSize(maxSize int) Option {
	return func(t *inMemoryTracker) {
		t.maxSize = maxSize
	}
}
