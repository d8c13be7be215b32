package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exposes call counters and latency histograms through a
// prometheus registerer.
type PrometheusRecorder struct {
	calls     *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusRecorder constructs a recorder and registers its collectors.
// A nil registerer uses the default registry.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procstore_calls_total",
			Help: "Stored procedure and view calls by procedure and status.",
		}, []string{"procedure", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "procstore_call_duration_seconds",
			Help:    "Stored procedure and view call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure"}),
	}
	if err := reg.Register(r.calls); err != nil {
		return nil, err
	}
	if err := reg.Register(r.durations); err != nil {
		return nil, err
	}
	return r, nil
}

// Observe records one call outcome.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.calls.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}
