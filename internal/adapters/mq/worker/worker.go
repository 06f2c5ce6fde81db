// Package worker runs the single goroutine allowed to mutate the path.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/animpath/internal/domain/edit"
	"github.com/okian/animpath/internal/domain/path"
	"github.com/okian/animpath/pkg/logger"
	"github.com/okian/animpath/pkg/metrics"
)

// Command abstracts what the editor reads off the queue.
type Command = edit.Command

// Queue defines how the editor receives commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Command
}

// Worker is a long running queue consumer.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// Editor applies queued commands to a path model and publishes an
// immutable snapshot after every successful edit. It must be the only
// writer of the model once Run has started.
type Editor struct {
	queue Queue
	model *path.Model
	name  string

	snap atomic.Pointer[path.Snapshot]

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

var _ Worker = (*Editor)(nil)

// NewEditor creates an editor for m fed by q.
func NewEditor(q Queue, m *path.Model, opts ...Option) *Editor {
	e := &Editor{
		queue:    q,
		model:    m,
		name:     "editor",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("editor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.name != "editor" {
		e.logger = e.logger.Named(e.name)
	}

	e.publish()
	metrics.UpdateNodeCount(m.NodeCount())
	return e
}

// Snapshot returns the latest published snapshot. It is safe to call from
// any goroutine.
func (e *Editor) Snapshot() *path.Snapshot {
	return e.snap.Load()
}

// Run starts the editor loop.
func (e *Editor) Run(ctx context.Context) {
	defer close(e.done)

	commands := e.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.shutdown:
			return
		case c, ok := <-commands:
			if !ok {
				return
			}
			e.process(ctx, c)
		}
	}
}

// Shutdown stops the editor.
func (e *Editor) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() { close(e.shutdown) })

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		e.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (e *Editor) process(ctx context.Context, c Command) { //nolint:gocritic // hugeParam: Command is passed by value for channel semantics
	start := time.Now()
	res := edit.Apply(e.model, c)
	reason := edit.Reason(res.Err)
	metrics.RecordCommand(string(c.Kind), reason, float64(time.Since(start).Microseconds())/1000)

	if res.Err != nil {
		metrics.RecordMutationReject(string(c.Kind), reason)
		e.logger.Warn(ctx, "edit rejected",
			logger.String("id", c.ID),
			logger.String("kind", string(c.Kind)),
			logger.Error(res.Err),
		)
	} else {
		metrics.RecordNodeMutation(string(c.Kind))
		metrics.UpdateNodeCount(e.model.NodeCount())
		if c.Kind == edit.Reset || c.Kind == edit.Replace {
			metrics.RecordPathReset()
		}
		e.publish()
		e.logger.Debug(ctx, "edit applied",
			logger.String("id", c.ID),
			logger.String("kind", string(c.Kind)),
			logger.Int("version", int(res.Version)),
		)
	}

	if c.Reply != nil {
		select {
		case c.Reply <- res:
		default:
			e.logger.Warn(ctx, "reply dropped", logger.String("id", c.ID))
		}
	}
}

func (e *Editor) publish() {
	e.snap.Store(e.model.Snapshot())
	metrics.RecordSnapshotPublished()
}
