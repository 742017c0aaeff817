package resilience

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks retry attempts and backoff delays for operations run
// through WithRetryFunc, mirroring the shape of the teacher's
// metrics.RetryMetrics collector.
type Metrics struct {
	AttemptsTotal      *prometheus.CounterVec
	DurationSeconds    *prometheus.HistogramVec
	BackoffSeconds     *prometheus.HistogramVec
	FinalAttemptsTotal *prometheus.HistogramVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide retry metrics collector, registering
// it with the default Prometheus registry on first call.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			AttemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "xc_ns_mover",
					Subsystem: "retry",
					Name:      "attempts_total",
					Help:      "Total number of retry attempts by operation, outcome, and error type.",
				},
				[]string{"operation", "outcome", "error_type"},
			),
			DurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "xc_ns_mover",
					Subsystem: "retry",
					Name:      "duration_seconds",
					Help:      "Duration of individual retry attempts.",
					Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
				},
				[]string{"operation", "outcome"},
			),
			BackoffSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "xc_ns_mover",
					Subsystem: "retry",
					Name:      "backoff_seconds",
					Help:      "Backoff delay applied before a retry attempt.",
					Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
				},
				[]string{"operation"},
			),
			FinalAttemptsTotal: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "xc_ns_mover",
					Subsystem: "retry",
					Name:      "final_attempts_total",
					Help:      "Number of attempts made until final success or failure.",
					Buckets:   []float64{1, 2, 3, 4, 5},
				},
				[]string{"operation", "outcome"},
			),
		}
	})
	return metricsInstance
}

func (m *Metrics) RecordAttempt(operation, outcome, errorType string, seconds float64) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(operation, outcome, errorType).Inc()
	m.DurationSeconds.WithLabelValues(operation, outcome).Observe(seconds)
}

func (m *Metrics) RecordBackoff(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.BackoffSeconds.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) RecordFinalAttempt(operation, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.FinalAttemptsTotal.WithLabelValues(operation, outcome).Observe(float64(attempts))
}
