package leaderboardqueue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	leaderboardservice "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/riverqueue/river"
)

// DefaultJobTimeout bounds one recalculation job.
const DefaultJobTimeout = 30 * time.Minute

// Recalculator runs recalculations for the worker.
type Recalculator interface {
	Recalculate(ctx context.Context, mode leaderboarddomain.Mode, progress leaderboardservice.ProgressFunc) (leaderboardservice.RecalcResult, error)
}

// RecalculateWorker executes RecalculateArgs jobs.
type RecalculateWorker struct {
	river.WorkerDefaults[RecalculateArgs]
	recalculator Recalculator
	logger       *slog.Logger
	timeout      time.Duration
}

// NewRecalculateWorker creates a worker. A non-positive timeout selects
// DefaultJobTimeout.
func NewRecalculateWorker(recalculator Recalculator, logger *slog.Logger, timeout time.Duration) *RecalculateWorker {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &RecalculateWorker{recalculator: recalculator, logger: logger, timeout: timeout}
}

func (w *RecalculateWorker) Timeout(*river.Job[RecalculateArgs]) time.Duration {
	return w.timeout
}

// Work runs the recalculation. Unknown modes and overlapping runs cancel the
// job instead of failing it.
func (w *RecalculateWorker) Work(ctx context.Context, job *river.Job[RecalculateArgs]) error {
	logger := w.logger.With(
		attr.Int64("job_id", job.ID),
		attr.String("mode", job.Args.Mode),
		attr.String("requested_by", job.Args.RequestedBy),
	)

	mode, err := leaderboarddomain.ParseMode(job.Args.Mode)
	if err != nil {
		logger.WarnContext(ctx, "Cancelling recalculation job", attr.Error(err))
		return river.JobCancel(err)
	}

	progress := func(p leaderboardservice.Progress) {
		logger.DebugContext(ctx, "Recalculation job progress",
			attr.String("phase", p.Phase),
			attr.Int("current", p.Current),
			attr.Int("total", p.Total),
		)
	}

	start := time.Now()
	res, err := w.recalculator.Recalculate(ctx, mode, progress)
	if err != nil {
		if errors.Is(err, leaderboardservice.ErrRecalculationInProgress) {
			logger.InfoContext(ctx, "Recalculation already running, cancelling job")
			return river.JobCancel(err)
		}
		logger.ErrorContext(ctx, "Recalculation job failed", attr.Error(err))
		return err
	}

	logger.InfoContext(ctx, "Recalculation job completed",
		attr.Int("entries", res.Entries),
		attr.Int("removed", res.Removed),
		attr.Duration("duration", time.Since(start)),
	)
	return nil
}
