// Package service wires the path model, its persistence and playback into
// one runnable unit that also backs the inspection API.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/animpath/internal/adapters/mq/queue"
	"github.com/okian/animpath/internal/adapters/mq/worker"
	"github.com/okian/animpath/internal/adapters/repository"
	"github.com/okian/animpath/internal/adapters/script"
	"github.com/okian/animpath/internal/adapters/watch"
	"github.com/okian/animpath/internal/config"
	"github.com/okian/animpath/internal/domain/edit"
	"github.com/okian/animpath/internal/domain/events"
	"github.com/okian/animpath/internal/domain/model"
	"github.com/okian/animpath/internal/domain/path"
	"github.com/okian/animpath/internal/driver"
	"github.com/okian/animpath/pkg/logger"
	"github.com/okian/animpath/pkg/metrics"
)

// Service owns one animated path: it loads it from the store, serializes
// edits through the editor, drives playback and reloads the asset when it
// changes on disk.
type Service struct {
	mu sync.RWMutex

	cfg      *config.Config
	store    repository.Store
	target   driver.Target
	handlers []driver.CrossingHandler

	// Core components, set by Start
	queue   *queue.InMemoryQueue
	editor  *worker.Editor
	driver  *driver.Driver
	script  *script.Handler
	watcher *watch.Watcher
	sub     events.Subscription

	// State
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	applied  atomic.Int64
	rejected atomic.Int64
	reloads  atomic.Int64

	logger logger.Logger
}

// New constructs a new Service. Components are created by Start.
func New(opts ...Option) *Service {
	s := &Service{cfg: config.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the path and starts the editor, the driver and, when
// configured, the asset watcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting path service...")

	if s.store == nil {
		st, err := openStore(s.cfg)
		if err != nil {
			return err
		}
		s.store = st
	}

	m, err := s.loadModel(ctx)
	if err != nil {
		return err
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.CommandQueueSize))
	s.editor = worker.NewEditor(s.queue, m, worker.WithLogger(s.logger.Named("editor")))

	dopts, err := s.driverOptions()
	if err != nil {
		return err
	}
	s.driver = driver.New(s.editor, dopts...)

	if s.cfg.Watch {
		fs, ok := s.store.(*repository.FileStore)
		if !ok {
			_ = s.queue.Close()
			return fmt.Errorf("%w: watch needs a file store", config.ErrInvalidConfig)
		}
		w, err := watch.New([]string{fs.Dir()}, watch.WithLogger(s.logger.Named("watch")))
		if err != nil {
			_ = s.queue.Close()
			return fmt.Errorf("watch assets: %w", err)
		}
		s.watcher = w
	}
	s.sub = s.driver.Attach(m.Bus())

	// The loops outlive the start context; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.editor.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.driver.Run(runCtx)
	}()
	if s.watcher != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.watchLoop(runCtx)
		}()
	}

	if s.cfg.AutoPlay {
		if err := s.driver.Start(); err != nil {
			s.logger.Warn(ctx, "auto play failed", logger.Error(err))
		}
	}

	s.started = true
	metrics.UpdateQueueCapacity(s.cfg.CommandQueueSize)
	s.logger.Info(ctx, "path service started",
		logger.String("store", s.cfg.Store),
		logger.String("asset", s.cfg.AssetName),
		logger.Int("nodes", m.NodeCount()),
		logger.Bool("watch", s.cfg.Watch),
		logger.Bool("script", s.script != nil),
	)
	return nil
}

// Stop shuts the loops down and waits for them. The last snapshot stays
// readable.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	w, ed, d, q, sub, cancel := s.watcher, s.editor, s.driver, s.queue, s.sub, s.cancel
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping path service...")

	// The watch loop takes the read lock, so nothing below may hold s.mu.
	var errs []error
	if w != nil {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close watcher: %w", err))
		}
	}
	if err := ed.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	cancel()
	s.wg.Wait()

	sub.Unsubscribe()
	_ = q.Close()
	_ = d.Stop()

	s.logger.Info(ctx, "path service stopped")
	return errors.Join(errs...)
}

// Edit queues c and waits for the editor to apply it. The returned error
// is the edit's own error, ErrBackpressure when the queue is full, or the
// context error.
func (s *Service) Edit(ctx context.Context, c edit.Command) (edit.Result, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return edit.Result{}, ErrNotStarted
	}

	if c.ID == "" {
		c.ID = edit.New(c.Kind).ID
	}
	c.Reply = make(chan edit.Result, 1)
	if !q.Enqueue(ctx, c) {
		return edit.Result{ID: c.ID, Kind: c.Kind}, ErrBackpressure
	}
	metrics.UpdateQueueSize(q.Len(ctx))

	select {
	case res := <-c.Reply:
		if res.Err != nil {
			s.rejected.Add(1)
		} else {
			s.applied.Add(1)
		}
		return res, res.Err
	case <-ctx.Done():
		return edit.Result{ID: c.ID, Kind: c.Kind}, ctx.Err()
	}
}

// Save writes the latest snapshot to the store.
func (s *Service) Save(ctx context.Context) error {
	snap := s.Snapshot()
	if snap == nil {
		return ErrNotStarted
	}
	if err := s.store.Save(ctx, s.cfg.AssetName, snap.State()); err != nil {
		return fmt.Errorf("save %s: %w", s.cfg.AssetName, err)
	}
	s.logger.Info(ctx, "path saved",
		logger.String("asset", s.cfg.AssetName),
		logger.Int("version", int(snap.Version())),
	)
	return nil
}

// Reload replaces the live path with the stored asset.
func (s *Service) Reload(ctx context.Context) error {
	_, err := s.reload(ctx, true)
	return err
}

// reload loads the asset and queues a Replace. Unless force is set, an
// asset equal to the live path is skipped so that our own saves do not
// bounce back through the watcher.
func (s *Service) reload(ctx context.Context, force bool) (bool, error) {
	if !s.isStarted() {
		return false, ErrNotStarted
	}
	st, err := s.store.Load(ctx, s.cfg.AssetName)
	if err != nil {
		return false, fmt.Errorf("reload %s: %w", s.cfg.AssetName, err)
	}
	if !force && sameState(st, s.Snapshot().State()) {
		return false, nil
	}
	c := edit.New(edit.Replace)
	c.State = &st
	if _, err := s.Edit(ctx, c); err != nil {
		return false, fmt.Errorf("reload %s: %w", s.cfg.AssetName, err)
	}
	s.reloads.Add(1)
	metrics.RecordAssetReload()
	return true, nil
}

func (s *Service) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case file, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			if watch.AssetName(file) != s.cfg.AssetName {
				continue
			}
			changed, err := s.reload(ctx, false)
			if err != nil {
				// A half written or removed file is retried on the next event.
				s.logger.Warn(ctx, "asset reload failed",
					logger.String("file", file),
					logger.Error(err),
				)
				continue
			}
			if changed {
				s.logger.Info(ctx, "asset reloaded", logger.String("file", file))
			}
		case err, ok := <-s.watcher.Errors():
			if !ok {
				return
			}
			s.logger.Warn(ctx, "asset watcher error", logger.Error(err))
		}
	}
}

// Snapshot returns the latest published path, or nil before Start.
func (s *Service) Snapshot() *path.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.editor == nil {
		return nil
	}
	return s.editor.Snapshot()
}

// Playback returns the driver status.
func (s *Service) Playback() driver.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.driver == nil {
		return driver.Status{}
	}
	return s.driver.Status()
}

// Driver exposes playback controls. It is nil before Start.
func (s *Service) Driver() *driver.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driver
}

// Script returns the crossing script, or nil when none is configured.
func (s *Service) Script() *script.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.script
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"store":          s.cfg.Store,
		"asset":          s.cfg.AssetName,
		"queueCapacity":  s.cfg.CommandQueueSize,
		"editsApplied":   s.applied.Load(),
		"editsRejected":  s.rejected.Load(),
		"assetReloads":   s.reloads.Load(),
		"scriptAttached": s.script != nil,
	}
	if s.started {
		snap := s.editor.Snapshot()
		st := s.driver.Status()
		queueLen := s.queue.Len(context.Background())

		stats["queueLength"] = queueLen
		stats["pathVersion"] = snap.Version()
		stats["nodes"] = snap.NodeCount()
		stats["wrapMode"] = snap.WrapMode().String()
		stats["playback"] = st.State.String()
		stats["timeRatio"] = st.TimeRatio

		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// loadModel restores the configured asset or seeds the store with a new
// default path.
func (s *Service) loadModel(ctx context.Context) (*path.Model, error) {
	wrap, err := model.ParseWrapMode(s.cfg.WrapMode)
	if err != nil {
		return nil, err
	}
	tangent, err := model.ParseTangentMode(s.cfg.TangentMode)
	if err != nil {
		return nil, err
	}
	common := []path.Option{
		path.WithMinNodeTimeSeparation(s.cfg.MinNodeTimeSeparation),
		path.WithDefaultEase(s.cfg.DefaultEase),
	}

	ok, err := s.store.Exists(ctx, s.cfg.AssetName)
	if err != nil {
		return nil, fmt.Errorf("check asset %s: %w", s.cfg.AssetName, err)
	}
	if ok {
		st, err := s.store.Load(ctx, s.cfg.AssetName)
		if err != nil {
			return nil, fmt.Errorf("load asset %s: %w", s.cfg.AssetName, err)
		}
		m, err := path.FromState(st, common...)
		if err != nil {
			return nil, fmt.Errorf("restore asset %s: %w", s.cfg.AssetName, err)
		}
		s.logger.Info(ctx, "path loaded",
			logger.String("asset", s.cfg.AssetName),
			logger.Int("nodes", m.NodeCount()),
		)
		return m, nil
	}

	m, err := path.New(append(common, path.WithWrapMode(wrap), path.WithTangentMode(tangent))...)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, s.cfg.AssetName, m.State()); err != nil {
		return nil, fmt.Errorf("seed asset %s: %w", s.cfg.AssetName, err)
	}
	s.logger.Info(ctx, "new path created", logger.String("asset", s.cfg.AssetName))
	return m, nil
}

func (s *Service) driverOptions() ([]driver.Option, error) {
	rotation, err := model.ParseRotationMode(s.cfg.RotationMode)
	if err != nil {
		return nil, err
	}
	smoothing, err := driver.ParseSmoothing(s.cfg.RotationSmoothing)
	if err != nil {
		return nil, err
	}
	opts := []driver.Option{
		driver.WithRotationMode(rotation),
		driver.WithSmoothing(smoothing),
		driver.WithForwardPointOffset(s.cfg.ForwardPointOffset),
		driver.WithPositionLerpSpeed(s.cfg.PositionLerpSpeed),
		driver.WithRotationSpeed(s.cfg.RotationSpeed),
		driver.WithTickRate(s.cfg.TickRate),
		driver.WithLogger(s.logger.Named("driver")),
	}
	if s.target != nil {
		opts = append(opts, driver.WithTarget(s.target))
	}
	for _, h := range s.handlers {
		opts = append(opts, driver.WithCrossingHandler(h))
	}
	if s.cfg.NodeEventsScript != "" {
		h, err := script.Load(s.cfg.NodeEventsScript, script.WithLogger(s.logger.Named("script")))
		if err != nil {
			return nil, fmt.Errorf("node events script: %w", err)
		}
		s.script = h
		opts = append(opts, driver.WithCrossingHandler(h.Handle))
	}
	return opts, nil
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreFile:
		return repository.NewFileStore(cfg.AssetDir)
	case config.StoreGData:
		props, err := repository.OpenGData(cfg.GDataApp)
		if err != nil {
			return nil, err
		}
		return repository.NewGDataStore(props), nil
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
	}
}

func sameState(a, b path.State) bool {
	ea, err := repository.Encode(a)
	if err != nil {
		return false
	}
	eb, err := repository.Encode(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
