package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports service metrics on its own registry:
//
//	hitransmeth_operation_duration_seconds{operation,status}
//	hitransmeth_operations_total{operation,status}
//	hitransmeth_semaphore_transitions_total{state}
//	hitransmeth_preflight_violations_total
type PrometheusRecorder struct {
	registry    *prometheus.Registry
	durations   *prometheus.HistogramVec
	operations  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	violations  prometheus.Counter
}

// NewPrometheusRecorder registers the collectors on a fresh registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hitransmeth",
			Name:      "operation_duration_seconds",
			Help:      "Duration of run driver operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hitransmeth",
			Name:      "operations_total",
			Help:      "Run driver operations by outcome.",
		}, []string{"operation", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hitransmeth",
			Name:      "semaphore_transitions_total",
			Help:      "Semaphore writes by resulting state.",
		}, []string{"state"}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hitransmeth",
			Name:      "preflight_violations_total",
			Help:      "Integrity violations reported by preflight checks.",
		}),
	}
	r.registry.MustRegister(r.durations, r.operations, r.transitions, r.violations)
	return r
}

// Registry exposes the gatherer, e.g. for prometheus.WriteToTextfile.
func (r *PrometheusRecorder) Registry() *prometheus.Registry { return r.registry }

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := outcome(success)
	r.durations.WithLabelValues(operation, status).Observe(duration.Seconds())
	r.operations.WithLabelValues(operation, status).Inc()
}

// ObserveTransition implements RunMetrics.
func (r *PrometheusRecorder) ObserveTransition(state string) {
	r.transitions.WithLabelValues(state).Inc()
}

// ObservePreflight implements RunMetrics.
func (r *PrometheusRecorder) ObservePreflight(violations int) {
	if violations > 0 {
		r.violations.Add(float64(violations))
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (r *PrometheusRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
