package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/corevisor/internal/validation"
)

// Validate checks the configuration. It does not modify cfg; call
// ApplyDefaults first to normalize values.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling endpoint is required when profiling is enabled")
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := cfg.Core.Validate(); err != nil {
		return fmt.Errorf("core: %w", err)
	}
	if cfg.Core.DefaultImage != "" && !validation.IsImageRef(cfg.Core.DefaultImage) {
		return fmt.Errorf("core: default_image %q is not a valid image reference", cfg.Core.DefaultImage)
	}

	return nil
}
