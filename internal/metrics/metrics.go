// Package metrics owns the Prometheus registry and the per-module metric
// recorders handed to services.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "flagboard"

// Registry groups the process registry with every module's recorders.
type Registry struct {
	Prometheus  *prometheus.Registry
	Leaderboard LeaderboardMetrics
	User        UserMetrics
	Queue       OperationMetrics
	HTTP        *HTTPMetrics
}

// NewRegistry creates a fresh registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ops := newOperationMetrics(reg)
	return &Registry{
		Prometheus:  reg,
		Leaderboard: newLeaderboardMetrics(reg, ops),
		User:        newUserMetrics(reg, ops),
		Queue:       serviceOperations{service: "river", ops: ops},
		HTTP:        newHTTPMetrics(reg),
	}
}

// OperationMetrics is the common surface recorded by withTelemetry wrappers.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, d time.Duration)
}

type operationMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func newOperationMetrics(reg prometheus.Registerer) *operationMetrics {
	labels := []string{"service", "operation"}
	m := &operationMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, labels),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Service operations that completed without error.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Service operations that returned an error or panicked.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of service operations.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, labels),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.duration)
	return m
}

// serviceOperations binds the shared operation vectors to one service label.
type serviceOperations struct {
	service string
	ops     *operationMetrics
}

func (s serviceOperations) RecordOperationAttempt(_ context.Context, operation string) {
	s.ops.attempts.WithLabelValues(s.service, operation).Inc()
}

func (s serviceOperations) RecordOperationSuccess(_ context.Context, operation string) {
	s.ops.successes.WithLabelValues(s.service, operation).Inc()
}

func (s serviceOperations) RecordOperationFailure(_ context.Context, operation string) {
	s.ops.failures.WithLabelValues(s.service, operation).Inc()
}

func (s serviceOperations) RecordOperationDuration(_ context.Context, operation string, d time.Duration) {
	s.ops.duration.WithLabelValues(s.service, operation).Observe(d.Seconds())
}
