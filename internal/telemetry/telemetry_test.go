package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.False(t, IsEnabled())
	assert.NoError(t, shutdown(context.Background()))
}

func TestNoopSpans(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	ctx, span := StartLifecycleSpan(context.Background(), "restart", SafeMode(true), Force(false))
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.Empty(t, TraceID(ctx))

	// Must not panic on a no-op span.
	RecordError(ctx, errors.New("boom"))
	RecordError(ctx, nil)
	SetAttributes(ctx, State("running"))

	_, svcSpan := StartServiceSpan(ctx, "set", "mqtt", "addon_a")
	svcSpan.End()
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOn")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOff")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestParseProfileTypes(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		types, err := ParseProfileTypes(nil)
		require.NoError(t, err)
		assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileInuseSpace}, types)
	})

	t.Run("Known", func(t *testing.T) {
		types, err := ParseProfileTypes([]string{"cpu", "goroutines", "mutex_count"})
		require.NoError(t, err)
		assert.Len(t, types, 3)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseProfileTypes([]string{"cpu", "disk"})
		assert.ErrorContains(t, err, "disk")
	})
}

func TestInitProfilingDisabled(t *testing.T) {
	stop, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, stop())
}
