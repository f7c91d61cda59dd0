package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/pkg/addons"
	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

func TestMQTT_DefaultsAndValidation(t *testing.T) {
	svc := NewMQTT(registry)

	require.NoError(t, svc.SetServiceData("zigbee2mqtt", map[string]any{
		"host":     "core-mosquitto",
		"username": "addons",
		"password": "secret",
	}))

	cfg, ok := svc.Decode("zigbee2mqtt")
	require.True(t, ok)
	assert.Equal(t, DefaultMQTTPort, cfg.Port)
	assert.Equal(t, "3.1.1", cfg.Protocol)
	assert.Equal(t, "core-mosquitto", cfg.Host)

	data, ok := svc.GetServiceData()
	require.True(t, ok)
	assert.Equal(t, float64(DefaultMQTTPort), data["zigbee2mqtt"]["port"])

	tests := []struct {
		name    string
		payload map[string]any
		field   string
	}{
		{"missing host", map[string]any{"port": 1883}, "host"},
		{"bad host", map[string]any{"host": "not a host!"}, "host"},
		{"port range", map[string]any{"host": "broker", "port": 70000}, "port"},
		{"protocol", map[string]any{"host": "broker", "protocol": "4"}, "protocol"},
		{"fractional port", map[string]any{"host": "broker", "port": 1883.9}, "port"},
		{"fractional port below one", map[string]any{"host": "broker", "port": 0.5}, "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetServiceData("other", tt.payload)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Equal(t, []string{"zigbee2mqtt"}, svc.Active())

	data, _ = svc.GetServiceData()
	assert.NotContains(t, data, "other")
}

func TestMQTT_AcceptsJSONNumbers(t *testing.T) {
	svc := NewMQTT(registry)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"host":"10.0.0.2","port":8883,"ssl":true}`), &payload))
	require.NoError(t, svc.SetServiceData("addon", payload))

	cfg, ok := svc.Decode("addon")
	require.True(t, ok)
	assert.Equal(t, 8883, cfg.Port)
	assert.True(t, cfg.SSL)

	require.NoError(t, json.Unmarshal([]byte(`{"host":"broker","port":1883.9}`), &payload))
	err := svc.SetServiceData("addon", payload)
	require.ErrorIs(t, err, models.ErrValidation)
	cfg, _ = svc.Decode("addon")
	assert.Equal(t, 8883, cfg.Port, "rejected payload must not replace the stored one")
}

func TestMySQL_RequiresCredentials(t *testing.T) {
	svc := NewMySQL(registry)

	err := svc.SetServiceData("addon", map[string]any{"host": "db", "port": 3306})
	require.ErrorIs(t, err, models.ErrValidation)
	assert.False(t, svc.Enabled())

	require.NoError(t, svc.SetServiceData("addon", map[string]any{
		"host": "db", "port": 3306, "username": "ha", "password": "pw",
	}))
	assert.True(t, svc.Enabled())
}

func TestTyped_Schema(t *testing.T) {
	schema := NewMySQL(registry).Schema()
	require.NotNil(t, schema)
	assert.Equal(t, "mysql", schema.Title)
	assert.ElementsMatch(t, []string{"host", "port", "username", "password"}, schema.Required)

	mqtt := NewMQTT(registry).Schema()
	assert.Equal(t, []string{"host"}, mqtt.Required)
}

func TestTyped_GetServiceDataIsCopy(t *testing.T) {
	svc := NewTyped[tokenPayload]("mqtt", registry)
	require.NoError(t, svc.SetServiceData("a", map[string]any{"token": "x"}))

	data, _ := svc.GetServiceData()
	data["a"]["token"] = "mutated"
	delete(data, "a")

	again, ok := svc.GetServiceData()
	require.True(t, ok)
	assert.Equal(t, "x", again["a"]["token"])
}

type brokenRegistry struct{}

func (brokenRegistry) InstalledAddons(context.Context) ([]addons.Addon, error) {
	return nil, errors.New("registry unavailable")
}

func TestTyped_ProvidersError(t *testing.T) {
	_, err := NewMQTT(brokenRegistry{}).Providers(context.Background())
	require.Error(t, err)
}
