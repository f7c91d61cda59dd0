package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/pkg/config"
)

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "corevisor configuration", doc["title"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "database", "controlplane", "core", "watchdog", "addons"} {
		assert.Contains(t, props, key)
	}
}

func TestMaskSecrets(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.ControlPlane.JWT.Secret = strings.Repeat("s", 64)
	cfg.Database.Postgres.Password = "hunter2"

	maskSecrets(cfg)
	assert.Equal(t, "********", cfg.ControlPlane.JWT.Secret)
	assert.Equal(t, "********", cfg.Database.Postgres.Password)

	empty := config.GetDefaultConfig()
	maskSecrets(empty)
	assert.Empty(t, empty.Database.Postgres.Password)
}

func TestConfigWarnings(t *testing.T) {
	t.Setenv("COREVISOR_CONTROLPLANE_SECRET", "")

	cfg := config.GetDefaultConfig()
	cfg.ControlPlane.JWT.Secret = "short"
	cfg.Core.Command = "corevisor-test-missing-binary"
	cfg.Core.CheckCommand = nil
	cfg.Core.APIURL = ""

	warnings := strings.Join(configWarnings(cfg), "\n")
	assert.Contains(t, warnings, "shorter than 32")
	assert.Contains(t, warnings, "not found in PATH")
	assert.Contains(t, warnings, "check_command")
	assert.Contains(t, warnings, "update_command")
	assert.Contains(t, warnings, "api_url")
	assert.Contains(t, warnings, "latest version is unknown")

	cfg.ControlPlane.JWT.Secret = ""
	assert.Contains(t, strings.Join(configWarnings(cfg), "\n"), "JWT secret not configured")
}

func TestEditor(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "")
	assert.Equal(t, "vi", editor())

	t.Setenv("EDITOR", "nano")
	assert.Equal(t, "nano", editor())

	t.Setenv("VISUAL", "code --wait")
	assert.Equal(t, "code --wait", editor())
}
