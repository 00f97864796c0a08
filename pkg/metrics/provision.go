package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProvisionMetrics counts provisioning steps and the directories handled.
type ProvisionMetrics struct {
	actions     *prometheus.CounterVec
	directories *prometheus.GaugeVec
	lastRun     prometheus.Gauge
}

// NewProvisionMetrics registers the provisioning metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewProvisionMetrics() *ProvisionMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &ProvisionMetrics{
		actions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "clusterstor_actions_total",
				Help: "Provisioning steps by action and outcome",
			},
			[]string{"action", "outcome"}, // outcome: applied, planned, skipped, declined, failed
		),
		directories: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clusterstor_directories",
				Help: "Directories handled in the last run by kind",
			},
			[]string{"kind"}, // project, workdir, department, workroot
		),
		lastRun: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "clusterstor_last_run_timestamp_seconds",
				Help: "Unix time the last provisioning run finished",
			},
		),
	}
}

// RecordAction counts one step.
func (m *ProvisionMetrics) RecordAction(action, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Inc()
}

// AddDirectory counts one handled directory of the given kind.
func (m *ProvisionMetrics) AddDirectory(kind string) {
	if m == nil {
		return
	}
	m.directories.WithLabelValues(kind).Inc()
}

// MarkRun records the end of a run.
func (m *ProvisionMetrics) MarkRun(t time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(t.Unix()))
}
