package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-service/internal/config"
	"github.com/garyjia/voucher-service/internal/container"
	"github.com/garyjia/voucher-service/pkg/utils"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to the YAML config file")
	flag.Parse()

	// A missing .env file is fine; the process environment still applies
	_ = gotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "voucher-service",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting voucher service",
		zap.Int("port", cfg.Server.Port),
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("auth_enabled", cfg.Auth.JWTSecret != ""))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	if err := app.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	// Blocks until SIGINT/SIGTERM or a listener failure
	serveErr := app.Server().Start(ctx)
	if serveErr != nil {
		logger.Error("HTTP server exited with error", zap.Error(serveErr))
	}

	logger.Info("Shutting down...")

	if err := app.Close(); err != nil {
		logger.Error("Container shutdown finished with errors", zap.Error(err))
	}

	if serveErr != nil {
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
