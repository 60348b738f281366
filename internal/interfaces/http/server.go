// Package http exposes the voucher services over a gin router.
// Handlers only translate between HTTP and service calls.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadSize   int64
	AllowedOrigins  []string

	// JWTSecret enables bearer-token auth on /api when non-empty
	JWTSecret string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            4400,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxUploadSize:   10 << 20,
		AllowedOrigins:  []string{"http://localhost:8000"},
	}
}

// Server owns the gin engine and the listening http.Server
type Server struct {
	config ServerConfig
	engine *gin.Engine
	http   *http.Server
	logger Logger

	stopOnce sync.Once
	stopErr  error
}

// NewServer builds the router for handlers; nothing listens until Start
func NewServer(config ServerConfig, handlers *Handlers, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		requestLogger(logger),
		metricsMiddleware(),
		corsMiddleware(config.AllowedOrigins),
	)

	engine.GET("/health", handlers.HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api", authMiddleware(config.JWTSecret))
	registerVoucherRoutes(api.Group("/vouchers"), handlers, config.MaxUploadSize)

	s := &Server{
		config: config,
		engine: engine,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:         s.Address(),
		Handler:      engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

func registerVoucherRoutes(vouchers *gin.RouterGroup, h *Handlers, maxUpload int64) {
	vouchers.GET("", h.ListVouchers)
	vouchers.POST("", h.CreateVoucher)
	vouchers.POST("/import", maxBodyMiddleware(maxUpload), h.ImportVouchers)
	vouchers.GET("/:id", h.GetVoucher)
	vouchers.PUT("/:id", h.UpdateVoucher)
	vouchers.DELETE("/:id", h.DeleteVoucher)
	vouchers.POST("/:id/print", h.PrintVoucher)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
// It returns early with the listener error if serving fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.http.Addr)
		err := s.http.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error("HTTP server failed", "error", err)
		}
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the server down, waiting up to ShutdownTimeout for in-flight requests.
// Calling it more than once, or before Start, is safe.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
			s.stopErr = err
			return
		}
		s.logger.Info("HTTP server stopped")
	})
	return s.stopErr
}

// Router returns the gin engine, mainly for httptest
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Address returns host:port
func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}
