package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Black-And-White-Club/flagboard/app/modules/auth"
	"github.com/Black-And-White-Club/flagboard/app/modules/leaderboard"
	"github.com/Black-And-White-Club/flagboard/app/modules/user"
	userdb "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/config"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/blobstore"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
	"github.com/Black-And-White-Club/flagboard/internal/docstore/bunstore"
	"github.com/Black-And-White-Club/flagboard/internal/docstore/memstore"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/health"
	"github.com/Black-And-White-Club/flagboard/internal/observability"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

// App holds the process-wide resources and the modules built on them.
type App struct {
	Config   *config.Config
	Obs      observability.Observability
	Store    docstore.Store
	Blobs    blobstore.Store
	EventBus eventbus.EventBus
	Router   *message.Router
	Modules  Modules

	handler   http.Handler
	server    *Server
	checks    map[string]health.Checker
	closeOnce sync.Once
	closeErr  error
}

// Modules are the feature modules mounted by the app.
type Modules struct {
	Auth        *auth.Module
	User        *user.Module
	Leaderboard *leaderboard.Module
}

// NewApp connects the configured backends and builds every module. Resources
// already opened are released when a later step fails.
func NewApp(ctx context.Context, cfg *config.Config, obs observability.Observability) (_ *App, err error) {
	logger := obs.Logger
	app := &App{
		Config: cfg,
		Obs:    obs,
		checks: map[string]health.Checker{},
	}
	defer func() {
		if err != nil {
			app.Close(context.Background())
		}
	}()

	if app.Store, err = OpenStore(ctx, cfg, obs); err != nil {
		return nil, err
	}
	if bs, ok := app.Store.(*bunstore.Store); ok {
		app.checks["docstore"] = health.CheckFunc(func(ctx context.Context) error {
			return bs.DB().PingContext(ctx)
		})
	}

	if app.Blobs, err = OpenBlobs(ctx, cfg); err != nil {
		return nil, err
	}

	bus, err := eventbus.New(eventbus.Config{
		URL:              cfg.NATS.URL,
		NkeySeed:         cfg.NATS.NkeySeed,
		QueueGroupPrefix: cfg.NATS.QueueGroupPrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	app.EventBus = bus

	app.Router, err = message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}

	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	root.Use(middleware.RealIP)
	root.Use(correlationID)
	root.Use(requestLogger(logger))
	root.Use(middleware.Recoverer)
	root.Use(obs.Registry.HTTP.Middleware)

	api := chi.NewRouter()

	userRepo := userdb.NewRepository(app.Store)

	if app.Modules.Auth, err = auth.NewModule(ctx, cfg, obs, userRepo, api); err != nil {
		return nil, fmt.Errorf("failed to initialize auth module: %w", err)
	}
	authenticate := app.Modules.Auth.Authenticate()

	if app.Modules.User, err = user.NewUserModule(ctx, obs, userRepo, app.EventBus, api, authenticate); err != nil {
		return nil, fmt.Errorf("failed to initialize user module: %w", err)
	}

	app.Modules.Leaderboard, err = leaderboard.NewLeaderboardModule(ctx, cfg, obs, leaderboard.Deps{
		Store:        app.Store,
		Blobs:        app.Blobs,
		EventBus:     app.EventBus,
		Router:       app.Router,
		APIRouter:    api,
		Authenticate: authenticate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize leaderboard module: %w", err)
	}
	for name, check := range app.Modules.Leaderboard.HealthChecks() {
		app.checks[name] = health.CheckFunc(check)
	}

	root.Mount("/healthz", health.NewHandler(logger, app.checks).Routes())
	root.Method(http.MethodGet, "/metrics", obs.Registry.HTTP.Handler())
	root.Route("/api", func(r chi.Router) {
		r.Use(app.Modules.Auth.Middlewares()...)
		r.Mount("/", api)
	})

	app.handler = root
	app.server = newServer(cfg.HTTP.Addr, root, cfg.HTTP.ShutdownGrace, logger)
	return app, nil
}

// OpenStore connects the configured document store backend.
func OpenStore(ctx context.Context, cfg *config.Config, obs observability.Observability) (docstore.Store, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		store, err := bunstore.Open(ctx, cfg.Postgres.DSN,
			bunstore.WithMaxBatchSize(cfg.Store.MaxBatchSize),
			bunstore.WithLogger(obs.Logger),
		)
		if err != nil {
			return nil, err
		}
		store.DB().SetMaxOpenConns(int(cfg.Postgres.MaxConns))
		obs.Logger.InfoContext(ctx, "Connected to Postgres document store")
		return store, nil
	default:
		obs.Logger.InfoContext(ctx, "Using in-memory document store")
		return memstore.New(memstore.WithMaxBatchSize(cfg.Store.MaxBatchSize)), nil
	}
}

// OpenBlobs builds the configured blob backend.
func OpenBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.Blob.Backend != config.BlobS3 {
		return blobstore.NewMemory(), nil
	}
	store, err := blobstore.NewS3(ctx, blobstore.S3Config{
		Endpoint:     cfg.Blob.Endpoint,
		Region:       cfg.Blob.Region,
		Bucket:       cfg.Blob.Bucket,
		AccessKey:    cfg.Blob.AccessKey,
		SecretKey:    cfg.Blob.SecretKey,
		PresignTTL:   cfg.Blob.PresignTTL,
		UsePathStyle: cfg.Blob.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}
	return store, nil
}

// Handler returns the root HTTP handler.
func (app *App) Handler() http.Handler {
	return app.handler
}

// Run serves HTTP, consumes commands and runs the leaderboard module until ctx
// is cancelled or one of them fails, then releases every resource.
func (app *App) Run(ctx context.Context) error {
	logger := app.Obs.Logger
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.server.Run(gctx)
	})

	g.Go(func() error {
		if err := app.Router.Run(gctx); err != nil {
			return fmt.Errorf("watermill router: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-app.Router.Running():
		case <-gctx.Done():
			return nil
		}
		return app.Modules.Leaderboard.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		return app.server.Shutdown(context.Background())
	})

	runErr := g.Wait()
	if err := app.Close(context.Background()); err != nil {
		logger.Error("Shutdown finished with errors", attr.Error(err))
	}
	return runErr
}

// Close stops the modules and then releases the shared resources. Calls after
// the first return the first result.
func (app *App) Close(ctx context.Context) error {
	app.closeOnce.Do(func() {
		app.closeErr = app.close(ctx)
	})
	return app.closeErr
}

func (app *App) close(ctx context.Context) error {
	var errs []error
	if app.Modules.Leaderboard != nil {
		if err := app.Modules.Leaderboard.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if app.Modules.User != nil {
		errs = append(errs, app.Modules.User.Close())
	}
	if app.Modules.Auth != nil {
		errs = append(errs, app.Modules.Auth.Close())
	}
	errs = append(errs, app.closeResources())
	return errors.Join(errs...)
}

func (app *App) closeResources() error {
	var errs []error
	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close watermill router: %w", err))
		}
	}
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
		}
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close document store: %w", err))
		}
	}
	return errors.Join(errs...)
}
