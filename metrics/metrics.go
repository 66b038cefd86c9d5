// Package metrics defines the Prometheus counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons recorded by ApplicationsRejected.
const (
	ReasonValidation = "validation"
	ReasonConsent    = "consent"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	ApplicationsSubmitted prometheus.Counter
	ApplicationsRejected  *prometheus.CounterVec
	StorageErrors         *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ApplicationsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "admissions_applications_submitted_total",
			Help: "Total number of applications persisted",
		}),
		ApplicationsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_applications_rejected_total",
			Help: "Applications refused before reaching the store, by reason",
		}, []string{"reason"}),
		StorageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_storage_errors_total",
			Help: "Data-access failures, by operation",
		}, []string{"op"}),
	}
}

// IncrementSubmitted increments the submitted counter by 1
func (m *Metrics) IncrementSubmitted() {
	m.ApplicationsSubmitted.Inc()
}

// IncrementRejected counts an application refused for reason.
func (m *Metrics) IncrementRejected(reason string) {
	m.ApplicationsRejected.WithLabelValues(reason).Inc()
}

// IncrementStorageErrors counts a failed store operation op.
func (m *Metrics) IncrementStorageErrors(op string) {
	m.StorageErrors.WithLabelValues(op).Inc()
}
