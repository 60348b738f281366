package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StaleUploadRemover deletes uploads last modified before a cutoff
type StaleUploadRemover interface {
	RemoveOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// UploadSweeperConfig holds configuration for the upload sweeper
type UploadSweeperConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// DefaultUploadSweeperConfig returns default configuration
func DefaultUploadSweeperConfig() UploadSweeperConfig {
	return UploadSweeperConfig{
		Interval: 10 * time.Minute,
		MaxAge:   time.Hour,
	}
}

// UploadSweeper removes uploads abandoned by crashed or interrupted imports.
// Imports remove their own file, so anything older than MaxAge is an orphan.
type UploadSweeper struct {
	config  UploadSweeperConfig
	uploads StaleUploadRemover
	logger  *zap.Logger
	now     func() time.Time

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	removedTotal int
}

// NewUploadSweeper creates a sweeper; zero config fields take their defaults
func NewUploadSweeper(config UploadSweeperConfig, uploads StaleUploadRemover, logger *zap.Logger) *UploadSweeper {
	defaults := DefaultUploadSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxAge <= 0 {
		config.MaxAge = defaults.MaxAge
	}
	return &UploadSweeper{
		config:  config,
		uploads: uploads,
		logger:  logger,
		now:     time.Now,
	}
}

// Start runs one sweep immediately and then one per interval until stopped
func (w *UploadSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("upload sweeper already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	w.logger.Info("UploadSweeper started",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("max_age", w.config.MaxAge))

	go w.loop(runCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *UploadSweeper) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("UploadSweeper stopped", zap.Int("removed_total", w.RemovedTotal()))
	return nil
}

// Name returns the worker name for identification
func (w *UploadSweeper) Name() string {
	return "UploadSweeper"
}

// RemovedTotal returns how many files the sweeper has deleted so far
func (w *UploadSweeper) RemovedTotal() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removedTotal
}

func (w *UploadSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs a single pass
func (w *UploadSweeper) sweep(ctx context.Context) {
	cutoff := w.now().Add(-w.config.MaxAge)

	removed, err := w.uploads.RemoveOlderThan(ctx, cutoff)
	if removed > 0 {
		w.mu.Lock()
		w.removedTotal += removed
		w.mu.Unlock()
		w.logger.Info("Removed stale uploads", zap.Int("count", removed), zap.Time("cutoff", cutoff))
	}
	if err != nil && ctx.Err() == nil {
		w.logger.Error("Upload sweep failed", zap.Error(err))
	}
}
