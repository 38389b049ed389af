package eas

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/veilmail/easgate/internal/adapter/eas/handlers"
	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/pkg/auth"
)

// Config holds the HTTP listener settings for the ActiveSync endpoint.
type Config struct {
	// Port the server listens on.
	Port int `mapstructure:"port" yaml:"port"`

	// ReadTimeout bounds request header and body reads.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// MaxRequestSize caps command request bodies in bytes.
	MaxRequestSize int64 `mapstructure:"max_request_size" yaml:"max_request_size"`
}

// applyDefaults fills in zero values. No write timeout is set anywhere:
// Ping holds its response open for the heartbeat interval.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8443
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = defaultMaxRequestBody
	}
}

// Server is the ActiveSync HTTP server.
//
// The server is created stopped; Start begins serving and blocks until
// the context is cancelled or the listener fails.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer creates the ActiveSync HTTP server.
//
// Defaults are applied here so the server works when constructed
// directly in tests, idempotent with config loading.
func NewServer(config Config, h *handlers.Handler, authSvc *auth.Service) *Server {
	config.applyDefaults()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", config.Port),
		Handler:     newRouter(h, authSvc, config.MaxRequestSize),
		ReadTimeout: config.ReadTimeout,
		IdleTimeout: config.IdleTimeout,
	}

	return &Server{
		server: server,
		config: config,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("ActiveSync server listening", "port", s.config.Port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("ActiveSync server shutdown signal received")
		// Fresh context: the cancelled one would abort the drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("ActiveSync server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("ActiveSync server shutdown error: %w", err)
			logger.Error("ActiveSync server shutdown error", logger.Err(err))
		} else {
			logger.Info("ActiveSync server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured for.
func (s *Server) Port() int {
	return s.config.Port
}
