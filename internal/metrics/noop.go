package metrics

import (
	"context"
	"time"
)

// NoOpMetrics satisfies every recorder interface and discards all samples.
type NoOpMetrics struct{}

var (
	_ LeaderboardMetrics = NoOpMetrics{}
	_ UserMetrics        = NoOpMetrics{}
)

func (NoOpMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoOpMetrics) RecordSubmissionEvent(context.Context, string)                  {}
func (NoOpMetrics) RecordBatchCommit(context.Context, string, int)                 {}
func (NoOpMetrics) RecordRecalculation(context.Context, string, int)               {}
func (NoOpMetrics) RecordReconciliationIssues(context.Context, string, int)        {}
func (NoOpMetrics) RecordReconciliationWrites(context.Context, int)                {}
