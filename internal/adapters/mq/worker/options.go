package worker

import (
	"github.com/okian/animpath/pkg/logger"
)

// Option applies a configuration option to the Editor.
type Option func(*Editor)

// WithName sets the editor name used in logs.
func WithName(name string) Option {
	return func(e *Editor) {
		if name != "" {
			e.name = name
		}
	}
}

// WithLogger sets a custom logger for the editor.
func WithLogger(l logger.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}
