package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	easadapter "github.com/veilmail/easgate/internal/adapter/eas"
	"github.com/veilmail/easgate/internal/adapter/eas/handlers"
	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/ping"
	syncengine "github.com/veilmail/easgate/internal/sync"
	"github.com/veilmail/easgate/internal/telemetry"
	"github.com/veilmail/easgate/pkg/auth"
	"github.com/veilmail/easgate/pkg/config"
	"github.com/veilmail/easgate/pkg/mailstore"
	badgermail "github.com/veilmail/easgate/pkg/mailstore/badger"
	"github.com/veilmail/easgate/pkg/mailstore/memory"
	"github.com/veilmail/easgate/pkg/metrics"
	promMetrics "github.com/veilmail/easgate/pkg/metrics/prometheus"
	"github.com/veilmail/easgate/pkg/state/models"
	"github.com/veilmail/easgate/pkg/state/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ActiveSync server",
	Long: `Start the easgate ActiveSync server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/easgate/config.yaml.

Examples:
  # Start with default config location
  easgate start

  # Start with custom config file
  easgate start --config /etc/easgate/config.yaml

  # Start with environment variable overrides
  EASGATE_LOGGING_LEVEL=DEBUG easgate start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "easgate",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "easgate",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics registry and server (if enabled)
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Open the state database (devices, sync state, users)
	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("State database close error", "error", err)
		}
	}()

	// Ensure the admin account from 'easgate init' exists
	if err := ensureAdminUser(ctx, st, cfg); err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}

	// Open the mail store
	mail, mailClose, err := openMailStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open mail store: %w", err)
	}
	defer func() {
		if err := mailClose(); err != nil {
			logger.Error("Mail store close error", "error", err)
		}
	}()
	logger.Info("Mail store opened", "backend", cfg.Mail.Backend, "path", cfg.Mail.Path)

	// Assemble the sync core
	cache, err := syncengine.NewBatchCache()
	if err != nil {
		return fmt.Errorf("failed to create batch cache: %w", err)
	}
	engine := syncengine.NewEngine(st, mail, cache)
	engine.SetMetrics(promMetrics.NewEASMetrics())

	pingEng := ping.New(mail, ping.Bounds{
		Min:     cfg.Ping.MinHeartbeat,
		Max:     cfg.Ping.MaxHeartbeat,
		Default: cfg.Ping.DefaultHeartbeat,
	})
	promMetrics.RegisterActivePings(pingEng.Active)

	h := handlers.New(st, mail, engine, pingEng)

	server := easadapter.NewServer(easadapter.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxRequestSize:  int64(cfg.Server.MaxRequestSize),
	}, h, auth.NewService(st))

	// Start servers in background
	serverDone := make(chan error, 2)
	go func() {
		serverDone <- server.Start(ctx)
	}()
	if metricsServer != nil {
		go func() {
			serverDone <- metricsServer.Start(ctx)
		}()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.", "port", server.Port())

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for the ActiveSync server to drain
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		cancel()
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// ensureAdminUser creates the bootstrap account configured by
// 'easgate init' if it does not exist yet. An existing account is left
// untouched; password changes go through 'easgate user passwd'.
func ensureAdminUser(ctx context.Context, st *store.GORMStore, cfg *config.Config) error {
	if cfg.Admin.PasswordHash == "" {
		return nil
	}

	_, err := st.GetUser(ctx, cfg.Admin.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return err
	}

	_, err = st.CreateUser(ctx, &models.User{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
		Email:        cfg.Admin.Email,
		Enabled:      true,
	})
	if err != nil {
		return err
	}
	logger.Info("Admin user created", "username", cfg.Admin.Username)
	return nil
}

// openMailStore builds the configured mail backend and returns it with
// its close function.
func openMailStore(cfg *config.Config) (mailstore.Store, func() error, error) {
	switch cfg.Mail.Backend {
	case "memory":
		return memory.New(), func() error { return nil }, nil
	case "badger":
		ms, err := badgermail.NewBadgerMailStore(cfg.Mail.Path)
		if err != nil {
			return nil, nil, err
		}
		return ms, ms.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown mail backend: %s", cfg.Mail.Backend)
	}
}
