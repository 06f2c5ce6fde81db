// Package script runs a tengo script whenever playback crosses a node.
//
// The script sees three globals: node (int), timestamp (float) and lap
// (int). If it assigns a non-empty string to message, the message is
// logged.
package script

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/okian/animpath/internal/driver"
	"github.com/okian/animpath/pkg/logger"
	"github.com/okian/animpath/pkg/metrics"
)

const defaultMaxAllocs = 100000

// Handler holds one compiled crossing script.
type Handler struct {
	mu       sync.Mutex
	compiled *tengo.Compiled
	name     string

	maxAllocs int64
	logger    logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithName labels the script in logs.
func WithName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.name = name
		}
	}
}

// WithMaxAllocs bounds the objects a single run may allocate.
func WithMaxAllocs(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxAllocs = n
		}
	}
}

// WithLogger sets a custom logger for the handler.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New compiles src.
func New(src []byte, opts ...Option) (*Handler, error) {
	h := &Handler{
		name:      "inline",
		maxAllocs: defaultMaxAllocs,
		logger:    logger.Get().Named("script"),
	}
	for _, opt := range opts {
		opt(h)
	}

	s := tengo.NewScript(src)
	_ = s.Add("node", 0)
	_ = s.Add("timestamp", 0.0)
	_ = s.Add("lap", 0)
	_ = s.Add("message", "")
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	s.SetMaxAllocs(h.maxAllocs)

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", h.name, err)
	}
	h.compiled = compiled
	return h, nil
}

// Load compiles the script at path.
func Load(path string, opts ...Option) (*Handler, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return New(src, append([]Option{WithName(path)}, opts...)...)
}

// Run executes the script for c.
func (h *Handler) Run(ctx context.Context, c driver.Crossing) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.compiled.Set("node", c.Node); err != nil {
		return err
	}
	if err := h.compiled.Set("timestamp", c.Timestamp); err != nil {
		return err
	}
	if err := h.compiled.Set("lap", c.Lap); err != nil {
		return err
	}
	if err := h.compiled.Set("message", ""); err != nil {
		return err
	}
	if err := h.compiled.RunContext(ctx); err != nil {
		return fmt.Errorf("run %s: %w", h.name, err)
	}

	if msg := strings.TrimSpace(h.compiled.Get("message").String()); msg != "" {
		h.logger.Info(ctx, msg,
			logger.String("script", h.name),
			logger.Int("node", c.Node),
			logger.Float64("timestamp", c.Timestamp),
		)
	}
	return nil
}

// Handle runs the script and logs failures. It satisfies
// driver.CrossingHandler.
func (h *Handler) Handle(ctx context.Context, c driver.Crossing) {
	if err := h.Run(ctx, c); err != nil {
		metrics.RecordScriptRun("error")
		h.logger.Error(ctx, "crossing script failed",
			logger.String("script", h.name),
			logger.Int("node", c.Node),
			logger.Error(err),
		)
		return
	}
	metrics.RecordScriptRun("ok")
}

// Var returns the value of a script global after the last run, or nil.
func (h *Handler) Var(name string) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.compiled.IsDefined(name) {
		return nil
	}
	return h.compiled.Get(name).Value()
}
