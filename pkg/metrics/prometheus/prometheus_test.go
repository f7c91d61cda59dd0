package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/pkg/metrics"
)

func TestConstructors_NilWhenDisabled(t *testing.T) {
	metrics.Reset()

	lm := NewLifecycleMetrics()
	assert.Nil(t, lm)
	// Nil receivers are no-ops.
	lm.RecordOperation("start", "success", time.Second)
	lm.RecordRejection("stop", "migration")
	lm.SetState("running")

	sm := NewServiceMetrics()
	assert.Nil(t, sm)
	sm.SetConsumers("mqtt", 1)
	sm.RecordDataChange("mqtt", "set")
}

func TestLifecycleMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := NewLifecycleMetrics()
	require.NotNil(t, m)

	m.RecordOperation("restart", "success", 2*time.Second)
	m.RecordOperation("restart", "failure", time.Second)
	m.RecordRejection("restart", "migration")
	m.SetState("restarting")
	m.SetState("running")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("restart", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("restart", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("restart", "migration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("running")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("restarting")))
}

func TestServiceMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := NewServiceMetrics()
	require.NotNil(t, m)

	m.SetConsumers("mqtt", 2)
	m.RecordDataChange("mqtt", "set")
	m.RecordDataChange("mqtt", "set")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.consumers.WithLabelValues("mqtt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.changes.WithLabelValues("mqtt", "set")))
}
