package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configHeader = `# corevisor configuration file
#
# Every key can be overridden with a COREVISOR_ environment variable,
# for example COREVISOR_LOGGING_LEVEL=DEBUG or COREVISOR_CORE_COMMAND=hass.
# The JWT secret can be provided with COREVISOR_CONTROLPLANE_SECRET instead.
#
# Issue an admin token with:
#   corevisor token --role admin --subject <name>

`

// InitConfig writes a default configuration file to the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file with a freshly
// generated JWT secret to path.
func InitConfigToPath(path string, force bool) error {
	return WriteNewConfig(GetDefaultConfig(), path, force)
}

// WriteNewConfig renders cfg to path. A JWT secret is generated when cfg
// has none. An existing file is only replaced when force is set.
func WriteNewConfig(cfg *Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	if cfg.ControlPlane.JWT.Secret == "" {
		secret, err := GenerateSecret()
		if err != nil {
			return err
		}
		cfg.ControlPlane.JWT.Secret = secret
	}

	data, err := RenderConfig(cfg)
	if err != nil {
		return err
	}
	return writeConfigFile(path, data)
}

// RenderConfig returns cfg as commented YAML.
func RenderConfig(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateSecret returns a random 64 character hex string suitable as a
// JWT signing secret.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
