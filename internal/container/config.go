// Package container provides dependency injection and lifecycle management
// for the voucher service.
package container

import (
	"fmt"
	"time"
)

// Database drivers understood by the container
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Import   ImportConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the voucher store: sqlite3 or postgres
	Driver string

	// Path to SQLite database file
	Path string

	// URL is the Postgres connection string
	URL string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded SQLite migrations when set
	MigrationsDir string
}

// StorageConfig holds upload storage settings.
type StorageConfig struct {
	// UploadDir is where multipart uploads are written before import
	UploadDir string

	// SweepInterval is how often abandoned uploads are looked for
	SweepInterval time.Duration

	// MaxUploadAge is the age after which a leftover upload is deleted
	MaxUploadAge time.Duration
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	// Timezone in which zone-less import timestamps are interpreted
	Timezone string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadSize  int64
	AllowedOrigins []string

	// JWTSecret enables bearer-token auth on /api when non-empty
	JWTSecret string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "data/vouchers.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			UploadDir:     "uploads",
			SweepInterval: 10 * time.Minute,
			MaxUploadAge:  time.Hour,
		},
		Import: ImportConfig{
			Timezone: "UTC",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           4400,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadSize:  10 << 20,
			AllowedOrigins: []string{"http://localhost:8000"},
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}

	if _, err := time.LoadLocation(c.Import.Timezone); err != nil {
		return fmt.Errorf("invalid import timezone %q: %w", c.Import.Timezone, err)
	}

	return nil
}
