package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
	authhandlers "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/handlers"
	leaderboardservice "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/application"
	leaderboardhandlers "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/handlers"
	leaderboardqueue "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/queue"
	leaderboarddb "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/repositories"
	leaderboardrouter "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/router"
	"github.com/Black-And-White-Club/flagboard/config"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/blobstore"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
)

// Deps are the shared resources the leaderboard module is built on. Router,
// APIRouter and Blobs may be nil.
type Deps struct {
	Store        docstore.Store
	Blobs        blobstore.Store
	EventBus     eventbus.EventBus
	Router       *message.Router
	APIRouter    chi.Router
	Authenticate func(http.Handler) http.Handler
}

// Module represents the leaderboard module.
type Module struct {
	LeaderboardService leaderboardservice.Service
	LeaderboardRouter  *leaderboardrouter.LeaderboardRouter
	processor          *leaderboardservice.SubmissionProcessor
	queue              *leaderboardqueue.Service
	config             *config.Config
	logger             *slog.Logger
}

// NewLeaderboardModule creates a new instance of the Leaderboard module.
func NewLeaderboardModule(ctx context.Context, cfg *config.Config, obs observability.Observability, deps Deps) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing leaderboard module")

	repo := leaderboarddb.NewRepository(deps.Store)
	service := leaderboardservice.NewLeaderboardService(
		repo,
		deps.Blobs,
		deps.EventBus,
		logger,
		obs.Registry.Leaderboard,
		obs.Tracer,
		leaderboardservice.Config{
			Deduplicate: cfg.Aggregation.Deduplicate,
			ExportPath:  cfg.Recalc.ExportPath,
		},
	)

	module := &Module{
		LeaderboardService: service,
		config:             cfg,
		logger:             logger,
	}

	if !cfg.Aggregation.Disabled {
		module.processor = leaderboardservice.NewSubmissionProcessor(service, repo, logger)
	}

	if cfg.Store.Backend == config.StorePostgres {
		queue, err := leaderboardqueue.NewService(ctx, cfg.Postgres.DSN, service, leaderboardqueue.Config{
			Workers:  cfg.Recalc.Workers,
			Interval: cfg.Recalc.Interval,
		}, logger, obs.Registry.Queue)
		if err != nil {
			return nil, fmt.Errorf("failed to create leaderboard queue: %w", err)
		}
		module.queue = queue
	}

	if deps.Router != nil {
		module.LeaderboardRouter = leaderboardrouter.NewLeaderboardRouter(logger, deps.Router, deps.EventBus, obs.Tracer, obs.Registry.Prometheus)
		if err := module.LeaderboardRouter.Configure(ctx, service); err != nil {
			return nil, fmt.Errorf("failed to configure leaderboard router: %w", err)
		}
	}

	if deps.APIRouter != nil {
		var queue leaderboardhandlers.RecalcQueue
		if module.queue != nil {
			queue = module.queue
		}
		handlers := leaderboardhandlers.NewLeaderboardHandlers(service, queue, logger, obs.Tracer)

		deps.APIRouter.Route("/leaderboard", func(r chi.Router) {
			r.Use(deps.Authenticate)
			r.Get("/", handlers.HandleGetLeaderboard)
			r.Get("/chart.png", handlers.HandleChart)
		})
		deps.APIRouter.Route("/admin/leaderboard", func(r chi.Router) {
			r.Use(deps.Authenticate, authhandlers.RequireRole(authdomain.RoleModerator))
			r.Post("/recalculate", handlers.HandleRecalculate)
			r.Post("/recalculate/async", handlers.HandleRecalculateAsync)
			r.Post("/export", handlers.HandleExport)
		})
	}

	return module, nil
}

// Run starts the submission processor and the job queue and blocks until ctx
// is done.
func (m *Module) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting leaderboard module")

	if m.processor != nil {
		if err := m.processor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start submission processor: %w", err)
		}
	}
	if m.queue != nil {
		if err := m.queue.Start(ctx); err != nil {
			return err
		}
	}

	<-ctx.Done()
	m.logger.Info("Leaderboard module goroutine stopped")
	return nil
}

// HealthChecks returns the module's readiness probes keyed by name.
func (m *Module) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if m.queue != nil {
		checks["river"] = m.queue.HealthCheck
	}
	if m.processor != nil {
		checks["submission_processor"] = func(context.Context) error {
			if !m.processor.Running() {
				return errors.New("submission processor is not running")
			}
			return nil
		}
	}
	return checks
}

// Close stops the processor, the queue and the router.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping leaderboard module")

	var errs []error
	if m.processor != nil {
		if err := m.processor.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.queue != nil {
		if err := m.queue.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.logger.Error("Leaderboard module stopped with errors", attr.Error(err))
		return err
	}
	m.logger.Info("Leaderboard module stopped")
	return nil
}
