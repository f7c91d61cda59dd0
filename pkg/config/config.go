package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/corevisor/pkg/controlplane/api"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/watchdog"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
	"github.com/marmos91/corevisor/pkg/coreapp/process"
)

// Config is the static supervisor configuration. Core options, service
// data and job history are dynamic and live in the control plane database.
//
// Sources, highest precedence first: CLI flags, COREVISOR_* environment
// variables, the config file (YAML or TOML), defaults.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout bounds the graceful shutdown of the supervisor.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	Database     store.Config  `mapstructure:"database" yaml:"database"`
	Metrics      MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	ControlPlane api.APIConfig `mapstructure:"controlplane" yaml:"controlplane"`

	Core     CoreConfig      `mapstructure:"core" yaml:"core"`
	Watchdog watchdog.Config `mapstructure:"watchdog" yaml:"watchdog"`
	Addons   AddonsConfig    `mapstructure:"addons" yaml:"addons"`
}

// LoggingConfig selects the log level, format (text or json) and output
// (stdout, stderr or a file path). Levels are matched case-insensitively.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig enables OTLP trace export and Pyroscope profiling.
// Tracing is opt-in.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Endpoint is the collector's gRPC host:port, localhost:4317 by default.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
	// SampleRate is the sampled fraction of traces.
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig points at a Pyroscope server. ProfileTypes accepts the
// names understood by telemetry.ParseProfileTypes.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig serves Prometheus metrics under /metrics on the API port.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// CoreConfig describes the supervised core app.
type CoreConfig struct {
	// process.Config keys live directly under core:.
	process.Config `mapstructure:",squash" yaml:",inline"`

	// DefaultImage is reported by info while no override image is set.
	DefaultImage string `mapstructure:"default_image" yaml:"default_image"`

	// InstalledVersion seeds the version until the first update records one.
	InstalledVersion string `mapstructure:"installed_version" yaml:"installed_version,omitempty"`

	// StopOnShutdown stops the core app when the supervisor exits. Off by
	// default so the core app survives supervisor restarts.
	StopOnShutdown bool `mapstructure:"stop_on_shutdown" yaml:"stop_on_shutdown"`

	// OptionsPollInterval reloads options written by another supervisor
	// sharing the database. Zero disables polling.
	OptionsPollInterval time.Duration `mapstructure:"options_poll_interval" validate:"gte=0" yaml:"options_poll_interval"`
}

// AddonsConfig locates the add-on registry.
type AddonsConfig struct {
	// RegistryPath is the watched YAML list of installed add-ons. Removing
	// an add-on from it drops its service data.
	RegistryPath string `mapstructure:"registry_path" validate:"required" yaml:"registry_path"`
}

// Load reads configPath (or the default location when empty), overlays
// COREVISOR_* variables, fills defaults and validates. A missing file
// yields GetDefaultConfig.
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return GetDefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(durationHook, mapstructure.StringToSliceHookFunc(","))
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  corevisor config init\n\n"+
				"Or specify a custom config file:\n"+
				"  corevisor <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  corevisor config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeConfigFile(path, data)
}

// writeConfigFile writes data with owner-only permissions, creating the
// parent directory. The file holds the JWT secret.
func writeConfigFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// newViper binds COREVISOR_SECTION_KEY variables and the config file.
func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("COREVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return v
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	return v
}

// durationHook accepts "30s"-style strings and raw nanosecond numbers.
func durationHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch d := data.(type) {
	case string:
		return time.ParseDuration(d)
	case int:
		return time.Duration(d), nil
	case int64:
		return time.Duration(d), nil
	case float64:
		return time.Duration(d), nil
	}
	return data, nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "corevisor")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "corevisor")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
