package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/corevisor/pkg/controlplane/api"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
)

// Core app defaults. They match a Home Assistant style installation where
// the configuration lives in /config and the API listens on 8123.
const (
	DefaultCoreCommand  = "hass"
	DefaultCoreAPIURL   = "http://localhost:8123"
	DefaultCoreImage    = "ghcr.io/home-assistant/home-assistant"
	defaultCoreDataPath = "/config"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	cfg.Database.ApplyDefaults()
	applyControlPlaneDefaults(&cfg.ControlPlane)
	applyCoreDefaults(&cfg.Core)
	cfg.Watchdog.ApplyDefaults()
	applyAddonsDefaults(&cfg.Addons)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyControlPlaneDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

// applyCoreDefaults fills in the core app command line. Arguments and the
// check command are only defaulted together with the command so a custom
// command never inherits hass flags.
func applyCoreDefaults(cfg *CoreConfig) {
	if cfg.Command == "" {
		cfg.Command = DefaultCoreCommand
		if len(cfg.Args) == 0 {
			cfg.Args = []string{"--config", defaultCoreDataPath}
		}
		if len(cfg.CheckCommand) == 0 {
			cfg.CheckCommand = []string{DefaultCoreCommand, "--script", "check_config", "--config", defaultCoreDataPath}
		}
		if cfg.APIURL == "" {
			cfg.APIURL = DefaultCoreAPIURL
		}
	}
	if cfg.DefaultImage == "" {
		cfg.DefaultImage = DefaultCoreImage
	}
	cfg.Config.ApplyDefaults()
}

func applyAddonsDefaults(cfg *AddonsConfig) {
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = filepath.Join(getConfigDir(), "addons.yaml")
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: store.Config{
			Type: store.DatabaseTypeSQLite,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
