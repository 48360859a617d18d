package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// LeaderboardMetrics records aggregation and recalculation activity.
type LeaderboardMetrics interface {
	OperationMetrics
	// RecordSubmissionEvent counts engine events by outcome
	// (processed, skipped, duplicate, failed).
	RecordSubmissionEvent(ctx context.Context, outcome string)
	RecordBatchCommit(ctx context.Context, job string, writes int)
	RecordRecalculation(ctx context.Context, mode string, entries int)
}

type leaderboardMetrics struct {
	serviceOperations
	events      *prometheus.CounterVec
	batchWrites *prometheus.HistogramVec
	entries     *prometheus.GaugeVec
	recalcs     *prometheus.CounterVec
}

func newLeaderboardMetrics(reg prometheus.Registerer, ops *operationMetrics) *leaderboardMetrics {
	m := &leaderboardMetrics{
		serviceOperations: serviceOperations{service: "leaderboard", ops: ops},
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_events_total",
			Help:      "Correct-submission events handled by the aggregation engine.",
		}, []string{"outcome"}),
		batchWrites: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_commit_writes",
			Help:      "Writes per committed batch.",
			Buckets:   []float64{1, 10, 50, 100, 250, 500},
		}, []string{"job"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leaderboard_entries",
			Help:      "Entries written by the last recalculation.",
		}, []string{"mode"}),
		recalcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_recalculations_total",
			Help:      "Completed leaderboard recalculations.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.events, m.batchWrites, m.entries, m.recalcs)
	return m
}

func (m *leaderboardMetrics) RecordSubmissionEvent(_ context.Context, outcome string) {
	m.events.WithLabelValues(outcome).Inc()
}

func (m *leaderboardMetrics) RecordBatchCommit(_ context.Context, job string, writes int) {
	m.batchWrites.WithLabelValues(job).Observe(float64(writes))
}

func (m *leaderboardMetrics) RecordRecalculation(_ context.Context, mode string, entries int) {
	m.recalcs.WithLabelValues(mode).Inc()
	m.entries.WithLabelValues(mode).Set(float64(entries))
}
