package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/corevisor/pkg/metrics"
)

// serviceMetrics is the Prometheus implementation of metrics.ServiceMetrics.
type serviceMetrics struct {
	consumers *prometheus.GaugeVec
	changes   *prometheus.CounterVec
}

// NewServiceMetrics creates Prometheus-backed service directory metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewServiceMetrics() *serviceMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &serviceMetrics{
		consumers: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corevisor_service_consumers",
				Help: "Number of add-ons holding data for a service",
			},
			[]string{"service"},
		),
		changes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "corevisor_service_data_changes_total",
				Help: "Total number of service payload changes",
			},
			[]string{"service", "action"},
		),
	}
}

func (m *serviceMetrics) SetConsumers(slug string, count int) {
	if m == nil {
		return
	}
	m.consumers.WithLabelValues(slug).Set(float64(count))
}

func (m *serviceMetrics) RecordDataChange(slug, action string) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(slug, action).Inc()
}

var _ metrics.ServiceMetrics = (*serviceMetrics)(nil)
