package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// UserMetrics records username index reconciliation.
type UserMetrics interface {
	OperationMetrics
	RecordReconciliationIssues(ctx context.Context, kind string, count int)
	RecordReconciliationWrites(ctx context.Context, writes int)
}

type userMetrics struct {
	serviceOperations
	issues *prometheus.GaugeVec
	writes prometheus.Counter
}

func newUserMetrics(reg prometheus.Registerer, ops *operationMetrics) *userMetrics {
	m := &userMetrics{
		serviceOperations: serviceOperations{service: "user", ops: ops},
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "username_index_issues",
			Help:      "Issues found by the last username index scan.",
		}, []string{"kind"}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "username_index_repair_writes_total",
			Help:      "Writes committed while repairing the username index.",
		}),
	}
	reg.MustRegister(m.issues, m.writes)
	return m
}

func (m *userMetrics) RecordReconciliationIssues(_ context.Context, kind string, count int) {
	m.issues.WithLabelValues(kind).Set(float64(count))
}

func (m *userMetrics) RecordReconciliationWrites(_ context.Context, writes int) {
	m.writes.Add(float64(writes))
}
