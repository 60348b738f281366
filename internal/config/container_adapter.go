package config

import (
	"github.com/garyjia/voucher-service/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			URL:             c.Database.URL,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Storage: container.StorageConfig{
			UploadDir:     c.Upload.Dir,
			SweepInterval: c.Upload.SweepInterval,
			MaxUploadAge:  c.Upload.MaxAge,
		},
		Import: container.ImportConfig{
			Timezone: c.Import.Timezone,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			MaxUploadSize:  c.Server.MaxUploadSize,
			AllowedOrigins: c.Server.AllowedOrigins,
			JWTSecret:      c.Auth.JWTSecret,
		},
	}
}
