package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/corevisor/pkg/metrics"
)

// States exported by the state gauge. Exactly one is 1 at any time.
var lifecycleStates = []string{
	"stopped", "starting", "running", "stopping",
	"restarting", "rebuilding", "updating", "error",
}

// lifecycleMetrics is the Prometheus implementation of metrics.LifecycleMetrics.
type lifecycleMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	state      *prometheus.GaugeVec
}

// NewLifecycleMetrics creates Prometheus-backed lifecycle metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewLifecycleMetrics() *lifecycleMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &lifecycleMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corevisor_core_operations_total",
				Help: "Total number of supervised core operations by kind and outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corevisor_core_operation_duration_seconds",
				Help:    "Duration of supervised core operations",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"operation"},
		),
		rejections: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corevisor_core_operation_rejections_total",
				Help: "Total number of core operations refused before starting",
			},
			[]string{"operation", "reason"},
		),
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corevisor_core_state",
				Help: "Current core app state (1 for the active state)",
			},
			[]string{"state"},
		),
	}
}

func (m *lifecycleMetrics) RecordOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *lifecycleMetrics) RecordRejection(operation, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(operation, reason).Inc()
}

func (m *lifecycleMetrics) SetState(state string) {
	if m == nil {
		return
	}
	for _, s := range lifecycleStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

var _ metrics.LifecycleMetrics = (*lifecycleMetrics)(nil)
