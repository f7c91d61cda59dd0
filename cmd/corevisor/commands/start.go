package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/corevisor/internal/logger"
	"github.com/marmos91/corevisor/internal/telemetry"
	"github.com/marmos91/corevisor/pkg/addons"
	"github.com/marmos91/corevisor/pkg/config"
	"github.com/marmos91/corevisor/pkg/controlplane"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/options"
	"github.com/marmos91/corevisor/pkg/coreapp/process"
	"github.com/marmos91/corevisor/pkg/metrics"
	prommetrics "github.com/marmos91/corevisor/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the supervisor",
	Long: `Start the corevisor supervisor with the specified configuration.

By default, the supervisor runs in the background (daemon mode). Use
--foreground to run in the foreground for debugging or when managed by
systemd or another process supervisor.

Examples:
  # Start in background (default)
  corevisor start

  # Start in foreground
  corevisor start --foreground

  # Start with custom config file
  corevisor start --config /etc/corevisor/config.yaml

  # Start with environment variable overrides
  COREVISOR_LOGGING_LEVEL=DEBUG corevisor start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/corevisor/corevisor.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/corevisor/corevisor.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "corevisor",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "corevisor",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("corevisor starting", "version", Version, "commit", Commit)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	deps, err := buildRuntimeDeps(cfg)
	if err != nil {
		return err
	}

	cp, err := controlplane.New(ctx, &controlplane.Options{
		Database: &cfg.Database,
		API:      &cfg.ControlPlane,
		Runtime:  deps,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := cp.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- cp.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Supervisor is running. Press Ctrl+C to stop.", "api_port", cfg.ControlPlane.Port)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Supervisor shutdown error", "error", err)
			return err
		}
		logger.Info("Supervisor stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Supervisor error", "error", err)
			return err
		}
		logger.Info("Supervisor stopped")
	}

	return nil
}

// buildRuntimeDeps wires the core app process, the add-on registry and the
// metrics collectors described by cfg.
func buildRuntimeDeps(cfg *config.Config) (runtime.Deps, error) {
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "path", "/metrics", "port", cfg.ControlPlane.Port)
	}

	core, err := process.New(cfg.Core.Config)
	if err != nil {
		return runtime.Deps{}, fmt.Errorf("failed to create core app runtime: %w", err)
	}

	registry, err := addons.NewFileRegistry(cfg.Addons.RegistryPath)
	if err != nil {
		return runtime.Deps{}, fmt.Errorf("failed to load add-on registry: %w", err)
	}
	logger.Info("Add-on registry loaded", "path", registry.Path())

	deps := runtime.Deps{
		Core:     core,
		Registry: registry,
		Options: options.Config{
			DefaultImage:     cfg.Core.DefaultImage,
			InstalledVersion: cfg.Core.InstalledVersion,
		},
		Watchdog:           cfg.Watchdog,
		PollInterval:       cfg.Core.OptionsPollInterval,
		StopCoreOnShutdown: cfg.Core.StopOnShutdown,
		ShutdownTimeout:    cfg.ShutdownTimeout,
	}
	// The constructors return typed nils when metrics are disabled; keep the
	// interfaces nil in that case.
	if cfg.Metrics.Enabled {
		deps.LifecycleMetrics = prommetrics.NewLifecycleMetrics()
		deps.ServiceMetrics = prommetrics.NewServiceMetrics()
	}
	return deps, nil
}
