package process

import (
	"fmt"
	"time"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultSafeModeArg = "--safe-mode"
	DefaultStopTimeout = 60 * time.Second
	DefaultHTTPTimeout = 10 * time.Second

	// VersionPlaceholder is replaced by the target version in UpdateCommand
	// and BackupCommand arguments.
	VersionPlaceholder = "{version}"
)

// Config describes how to run the core app as a child process.
type Config struct {
	// Command is the executable started by Start. Required.
	Command string `mapstructure:"command" yaml:"command"`

	// Args are passed to Command on every start.
	Args []string `mapstructure:"args" yaml:"args,omitempty"`

	// Env holds extra KEY=VALUE pairs appended to the supervisor environment.
	Env []string `mapstructure:"env" yaml:"env,omitempty"`

	// WorkDir is the working directory of the child process.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir,omitempty"`

	// SafeModeArg is appended to Args when starting in safe mode.
	SafeModeArg string `mapstructure:"safe_mode_arg" yaml:"safe_mode_arg,omitempty"`

	// CheckCommand validates the core app configuration. A non-zero exit
	// status means the configuration is invalid and its output is the log.
	CheckCommand []string `mapstructure:"check_command" yaml:"check_command,omitempty"`

	// RebuildCommand recreates the core app environment while it is stopped.
	RebuildCommand []string `mapstructure:"rebuild_command" yaml:"rebuild_command,omitempty"`

	// UpdateCommand installs a new version. Arguments may contain
	// VersionPlaceholder; the version is also exported as COREVISOR_VERSION.
	UpdateCommand []string `mapstructure:"update_command" yaml:"update_command,omitempty"`

	// BackupCommand takes a backup before an update when requested.
	BackupCommand []string `mapstructure:"backup_command" yaml:"backup_command,omitempty"`

	// APIURL is the base URL of the core app HTTP API, used for health and
	// migration probes. Empty disables both probes.
	APIURL string `mapstructure:"api_url" yaml:"api_url,omitempty"`

	// StopTimeout is how long Stop waits after SIGTERM before killing.
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout,omitempty"`

	// HTTPTimeout bounds every request to the core app API and VersionURL.
	HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout,omitempty"`

	// LatestVersion pins the newest available version.
	LatestVersion string `mapstructure:"latest_version" yaml:"latest_version,omitempty"`

	// VersionURL serves {"version": "..."} with the newest available version.
	// It takes precedence over LatestVersion.
	VersionURL string `mapstructure:"version_url" yaml:"version_url,omitempty"`

	// Machine and Arch override the detected host identity.
	Machine string `mapstructure:"machine" yaml:"machine,omitempty"`
	Arch    string `mapstructure:"arch" yaml:"arch,omitempty"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.SafeModeArg == "" {
		c.SafeModeArg = DefaultSafeModeArg
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("core command is required")
	}
	return nil
}
