package container

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/garyjia/voucher-service/internal/application/port"
	"github.com/garyjia/voucher-service/internal/application/service"
	"github.com/garyjia/voucher-service/internal/importer"
	"github.com/garyjia/voucher-service/internal/infrastructure/persistence/postgres"
	"github.com/garyjia/voucher-service/internal/infrastructure/persistence/repository"
	"github.com/garyjia/voucher-service/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/voucher-service/internal/infrastructure/storage"
	"github.com/garyjia/voucher-service/internal/infrastructure/worker"
	httpserver "github.com/garyjia/voucher-service/internal/interfaces/http"
	"github.com/garyjia/voucher-service/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds the voucher store and its transaction manager.
// Close releases whichever connection backs them.
type DatabaseBundle struct {
	Vouchers  port.VoucherRepository
	TxManager port.TransactionManager
	Close     func() error
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Queries  service.VoucherQueryService
	Vouchers service.VoucherService
	Imports  service.ImportService
}

// ProvideDatabase opens the configured store, brings its schema up to date
// and returns the voucher repository bound to it.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case DriverPostgres:
		return providePostgres(ctx, cfg, logger)
	case DriverSQLite, "":
		return provideSQLite(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func provideSQLite(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	// Embedded migrations unless a directory override is configured
	var migrations fs.FS = database.EmbeddedMigrations()
	if cfg.MigrationsDir != "" {
		migrations = os.DirFS(cfg.MigrationsDir)
	}

	if err := database.NewMigrator(db, logger).RunMigrations(ctx, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	txManager := sqlite.NewDB(db.DB, logger)
	return &DatabaseBundle{
		Vouchers:  repository.NewVoucherRepository(txManager, logger),
		TxManager: txManager,
		Close:     db.Close,
	}, nil
}

func providePostgres(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	db, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.URL,
		MaxConns:        cfg.MaxOpenConns,
		MinConns:        cfg.MaxIdleConns,
		MaxConnLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &DatabaseBundle{
		Vouchers:  postgres.NewVoucherRepository(db, logger),
		TxManager: db,
		Close: func() error {
			db.Close()
			return nil
		},
	}, nil
}

// ProvideUploadStorage creates the local upload directory store.
func ProvideUploadStorage(cfg *StorageConfig, logger *zap.Logger) (*storage.LocalUploadStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	return storage.NewLocalUploadStorage(cfg.UploadDir, logger)
}

// ProvideWorkers creates the background worker manager with the upload sweeper registered.
func ProvideWorkers(cfg *StorageConfig, uploads *storage.LocalUploadStorage, logger *zap.Logger) (*worker.Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if uploads == nil {
		return nil, fmt.Errorf("upload storage is required")
	}

	manager := worker.NewManager(logger)
	manager.Register(worker.NewUploadSweeper(worker.UploadSweeperConfig{
		Interval: cfg.SweepInterval,
		MaxAge:   cfg.MaxUploadAge,
	}, uploads, logger))
	return manager, nil
}

// ProvideParser creates the import file parser for the configured timezone.
func ProvideParser(cfg *ImportConfig, logger *zap.Logger) (*importer.Parser, error) {
	if cfg == nil {
		return nil, fmt.Errorf("import config is required")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load import timezone: %w", err)
	}
	return importer.NewParser(loc, logger), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Vouchers  port.VoucherRepository
	TxManager port.TransactionManager
	Uploads   port.UploadStorage
	Parser    service.FileParser
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Vouchers == nil {
		return nil, fmt.Errorf("voucher repository is required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Uploads == nil {
		return nil, fmt.Errorf("upload storage is required")
	}
	if deps.Parser == nil {
		return nil, fmt.Errorf("parser is required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}
	codes := service.NewCodeGenerator()

	return &ServiceBundle{
		Queries:  service.NewVoucherQueryService(deps.Vouchers, logger),
		Vouchers: service.NewVoucherService(deps.Vouchers, deps.TxManager, codes, logger),
		Imports:  service.NewImportService(deps.Vouchers, deps.Uploads, deps.Parser, codes, logger),
	}, nil
}

// ProvideHTTPServer creates the HTTP server exposing the services.
func ProvideHTTPServer(cfg *ServerConfig, services *ServiceBundle, uploads port.UploadStorage, health httpserver.HealthChecker, logger *zap.Logger) (*httpserver.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}

	adapter := &zapLoggerAdapter{logger: logger}
	handlers := httpserver.NewHandlers(services.Queries, services.Vouchers, services.Imports, uploads, health, adapter)

	return httpserver.NewServer(httpserver.ServerConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxUploadSize:  cfg.MaxUploadSize,
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
	}, handlers, adapter), nil
}
