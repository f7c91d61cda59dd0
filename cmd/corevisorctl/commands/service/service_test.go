package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/pkg/apiclient"
)

func TestServiceListRows(t *testing.T) {
	list := ServiceList{
		{Slug: "mqtt", Enabled: true, Providers: []string{"core_mosquitto", "emqx"}, Active: []string{"core_mosquitto"}},
		{Slug: "mysql"},
	}

	assert.Equal(t, []string{"SLUG", "ENABLED", "PROVIDERS", "ACTIVE"}, list.Headers())
	rows := list.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"mqtt", "yes", "core_mosquitto, emqx", "core_mosquitto"}, rows[0])
	assert.Equal(t, []string{"mysql", "no", "-", "-"}, rows[1])
}

func TestServicePairs(t *testing.T) {
	svc := &apiclient.Service{
		Slug:      "mqtt",
		Enabled:   true,
		Providers: []string{"emqx", "core_mosquitto"},
		Data: map[string]map[string]any{
			"emqx":           {"host": "emqx", "port": 1883},
			"core_mosquitto": {"host": "core-mosquitto"},
		},
	}

	pairs := servicePairs(svc)
	require.Len(t, pairs, 6)
	assert.Equal(t, [2]string{"Providers", "emqx, core_mosquitto"}, pairs[2])
	assert.Equal(t, "Data[core_mosquitto]", pairs[4][0])
	assert.Equal(t, `{"host":"core-mosquitto"}`, pairs[4][1])
	assert.Equal(t, "Data[emqx]", pairs[5][0])
	assert.JSONEq(t, `{"host":"emqx","port":1883}`, pairs[5][1])
}
