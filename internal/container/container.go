package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/infrastructure/storage"
	"github.com/garyjia/voucher-service/internal/infrastructure/worker"
	httpserver "github.com/garyjia/voucher-service/internal/interfaces/http"
	"go.uber.org/zap"
)

// Container owns every long-lived component of the service.
// Start builds them bottom-up; each successful step pushes a closer,
// and Close (or a failed Start) pops them in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	database *DatabaseBundle
	uploads  *storage.LocalUploadStorage
	services *ServiceBundle
	server   *httpserver.Server
	workers  *worker.Manager

	closers []namedCloser

	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

type namedCloser struct {
	name string
	fn   func() error
}

// HealthStatus is the aggregate of every component check
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth is one component's check result
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer validates cfg. Nothing is opened until Start.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Container{config: cfg, logger: logger}, nil
}

// Start opens the database, upload storage, services, HTTP server and
// workers in that order. The server is built but not listening.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed.Load():
		return fmt.Errorf("container has been closed")
	case c.ready.Load():
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container", zap.String("driver", c.config.Database.Driver))

	if err := c.build(ctx); err != nil {
		if unwindErr := c.unwind(); unwindErr != nil {
			c.logger.Error("Cleanup after failed start", zap.Error(unwindErr))
		}
		return err
	}

	c.ready.Store(true)
	c.logger.Info("Container started")
	return nil
}

func (c *Container) build(ctx context.Context) error {
	db, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.database = db
	c.push("database", func() error {
		c.database = nil
		if db.Close == nil {
			return nil
		}
		return db.Close()
	})

	uploads, err := ProvideUploadStorage(&c.config.Storage, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.uploads = uploads

	parser, err := ProvideParser(&c.config.Import, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize parser: %w", err)
	}

	services, err := ProvideServices(&ServiceDeps{
		Vouchers:  db.Vouchers,
		TxManager: db.TxManager,
		Uploads:   uploads,
		Parser:    parser,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services

	server, err := ProvideHTTPServer(&c.config.Server, services, uploads, db.Vouchers, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	c.server = server
	c.push("http server", server.Stop)

	workers, err := ProvideWorkers(&c.config.Storage, uploads, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	if err := workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.workers = workers
	c.push("workers", workers.StopAll)

	return nil
}

func (c *Container) push(name string, fn func() error) {
	c.closers = append(c.closers, namedCloser{name: name, fn: fn})
}

// unwind runs the registered closers last-in first-out and empties the stack
func (c *Container) unwind() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.fn(); err != nil {
			c.logger.Error("Failed to close component", zap.String("component", cl.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", cl.name, err))
			continue
		}
		c.logger.Info("Component closed", zap.String("component", cl.name))
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Close stops workers, then the HTTP server, then the database.
// A container cannot be closed twice or restarted.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return fmt.Errorf("container already closed")
	}
	c.ready.Store(false)

	if err := c.unwind(); err != nil {
		return fmt.Errorf("container closed with errors: %w", err)
	}
	c.logger.Info("Container closed")
	return nil
}

// Ready reports whether Start completed and Close has not run
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health checks the database connection, upload storage and workers
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{Overall: true, Components: make(map[string]ComponentHealth, 3)}
	record := func(name string, h ComponentHealth) {
		status.Components[name] = h
		status.Overall = status.Overall && h.Healthy
	}
	missing := ComponentHealth{Message: "not initialized"}

	if c.database == nil {
		record("database", missing)
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.database.Vouchers.Ping(pingCtx)
		cancel()
		if err != nil {
			record("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			record("database", ComponentHealth{Healthy: true})
		}
	}

	if c.uploads == nil {
		record("uploads", missing)
	} else {
		record("uploads", ComponentHealth{Healthy: true, Message: c.uploads.BaseDir()})
	}

	if c.workers == nil || c.closed.Load() {
		record("workers", missing)
	} else {
		record("workers", ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("%d registered", c.workers.Count()),
		})
	}

	return status
}

// Vouchers returns the voucher repository, or nil before Start and after Close
func (c *Container) Vouchers() port.VoucherRepository {
	if c.database == nil {
		return nil
	}
	return c.database.Vouchers
}

func (c *Container) TxManager() port.TransactionManager {
	if c.database == nil {
		return nil
	}
	return c.database.TxManager
}

func (c *Container) Uploads() port.UploadStorage {
	if c.uploads == nil {
		return nil
	}
	return c.uploads
}

func (c *Container) Services() *ServiceBundle { return c.services }
func (c *Container) Server() *httpserver.Server { return c.server }
func (c *Container) Logger() *zap.Logger { return c.logger }
func (c *Container) Config() *Config { return c.config }

// zapLoggerAdapter satisfies the small key/value Logger interfaces used by
// the service and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields pairs up keys and values. Non-string keys and a
// trailing key without a value are dropped; errors keep their zap encoding.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
