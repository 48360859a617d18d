package leaderboardqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// QueueService schedules and runs background recalculations.
type QueueService interface {
	// EnqueueRecalculation inserts a job and returns its id. A request that
	// duplicates a pending job returns the pending job's id.
	EnqueueRecalculation(ctx context.Context, mode leaderboarddomain.Mode, requestedBy string) (int64, error)
	// HealthCheck verifies the queue service is healthy
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Config tunes the queue.
type Config struct {
	// Workers is the concurrency of the leaderboard queue.
	Workers int
	// Interval schedules a periodic full recalculation; zero disables it.
	Interval time.Duration
	// JobTimeout bounds one job; zero selects DefaultJobTimeout.
	JobTimeout time.Duration
}

// Service handles recalculation jobs using River
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics metrics.OperationMetrics
}

// NewService creates a River client over its own pgx pool.
func NewService(ctx context.Context, dsn string, recalculator Recalculator, cfg Config, logger *slog.Logger, metrics metrics.OperationMetrics) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("component", "river_queue"),
		attr.String("queue", QueueName),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service")

	pool, err := newPool(ctx, dsn)
	if err != nil {
		ctxLogger.Error("Failed to connect River pool", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service")
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewRecalculateWorker(recalculator, ctxLogger, cfg.JobTimeout))

	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	riverConfig := &river.Config{
		Logger: ctxLogger,
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	}
	if cfg.Interval > 0 {
		riverConfig.PeriodicJobs = []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.Interval),
				func() (river.JobArgs, *river.InsertOpts) {
					return RecalculateArgs{Mode: string(leaderboarddomain.ModeFull), RequestedBy: RequestedBySchedule}, nil
				},
				nil,
			),
		}
		ctxLogger.Info("Periodic full recalculation scheduled", attr.Duration("interval", cfg.Interval))
	}

	client, err := river.NewClient(riverpgxv5.New(pool), riverConfig)
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service")
	metrics.RecordOperationDuration(ctx, "initialize_service", time.Since(start))
	ctxLogger.Info("Leaderboard queue service initialized")

	return &Service{client: client, pool: pool, logger: ctxLogger, metrics: metrics}, nil
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies River's schema migrations.
func Migrate(ctx context.Context, dsn string, logger *slog.Logger) (int, error) {
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), &rivermigrate.Config{Logger: logger})
	if err != nil {
		return 0, fmt.Errorf("failed to create River migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return 0, fmt.Errorf("failed to run River migrations: %w", err)
	}
	return len(res.Versions), nil
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service")
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service")
	s.metrics.RecordOperationDuration(ctx, "start_service", time.Since(start))
	s.logger.Info("Leaderboard queue service started")
	return nil
}

// Stop waits for running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service")
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service")
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service")
	s.metrics.RecordOperationDuration(ctx, "stop_service", time.Since(start))
	s.logger.Info("Leaderboard queue service stopped")
	return nil
}

// Close releases the pool of a service that was never started, such as an
// insert-only client.
func (s *Service) Close() {
	s.pool.Close()
}

func (s *Service) EnqueueRecalculation(ctx context.Context, mode leaderboarddomain.Mode, requestedBy string) (int64, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_recalculation")

	res, err := s.client.Insert(ctx, RecalculateArgs{Mode: string(mode), RequestedBy: requestedBy}, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue recalculation", attr.String("mode", string(mode)), attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "enqueue_recalculation")
		return 0, fmt.Errorf("failed to enqueue recalculation: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_recalculation")
	s.metrics.RecordOperationDuration(ctx, "enqueue_recalculation", time.Since(start))
	s.logger.InfoContext(ctx, "Recalculation enqueued",
		attr.ExtractCorrelationID(ctx),
		attr.Int64("job_id", res.Job.ID),
		attr.String("mode", string(mode)),
		attr.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return res.Job.ID, nil
}

func (s *Service) HealthCheck(ctx context.Context) error {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM river_job WHERE queue = $1", QueueName).Scan(&count); err != nil {
		s.metrics.RecordOperationFailure(ctx, "health_check")
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	s.logger.Debug("Queue service health check passed", attr.Int64("jobs", count))
	return nil
}
