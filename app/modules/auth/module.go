package auth

import (
	"context"
	"log/slog"
	"net/http"

	authservice "github.com/Black-And-White-Club/flagboard/app/modules/auth/application"
	authhandlers "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/handlers"
	authjwt "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/jwt"
	userdb "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/config"
	"github.com/Black-And-White-Club/flagboard/internal/observability"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Module represents the auth module.
type Module struct {
	config   *config.Config
	service  authservice.Service
	handlers *authhandlers.AuthHandlers
	limiter  *authhandlers.ClientLimiter
	logger   *slog.Logger
}

// NewModule creates a new auth module. When apiRouter is non-nil the identity
// routes are registered on it under /auth.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	userRepo userdb.Repository,
	apiRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "Initializing auth module")

	jwtProvider := authjwt.NewProvider(cfg.JWT.Secret, cfg.JWT.Issuer)

	service := authservice.NewService(
		jwtProvider,
		userRepo,
		authservice.Config{DefaultTTL: cfg.JWT.DefaultTTL},
		logger,
		tracer,
	)

	module := &Module{
		config:   cfg,
		service:  service,
		handlers: authhandlers.NewAuthHandlers(logger, tracer),
		limiter:  authhandlers.NewClientLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst),
		logger:   logger,
	}

	if apiRouter != nil {
		apiRouter.Route("/auth", func(r chi.Router) {
			r.Use(module.Authenticate())
			r.Get("/me", module.handlers.HandleMe)
		})
	}

	return module, nil
}

// Middlewares returns the chain every /api request passes through before
// route-level authentication: CORS then per-IP rate limiting.
func (m *Module) Middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		authhandlers.CORS(authhandlers.CORSPolicy{
			Origins: m.config.HTTP.AllowedOrigins,
			Methods: m.config.HTTP.AllowedMethods,
			MaxAge:  m.config.HTTP.CORSMaxAge,
		}),
		authhandlers.RateLimit(m.limiter),
	}
}

// Authenticate returns the bearer token middleware backed by this module's service.
func (m *Module) Authenticate() func(http.Handler) http.Handler {
	return authhandlers.Authenticate(m.service)
}

// GetService returns the auth service for use by other modules.
func (m *Module) GetService() authservice.Service {
	return m.service
}

// Close stops the auth module.
func (m *Module) Close() error {
	m.logger.Info("Auth module stopped")
	return nil
}
