package user

import (
	"context"
	"log/slog"
	"net/http"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
	authhandlers "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/handlers"
	userservice "github.com/Black-And-White-Club/flagboard/app/modules/user/application"
	userhandlers "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/handlers"
	userdb "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/observability"
	"github.com/go-chi/chi/v5"
)

// Module represents the user module.
type Module struct {
	repo    userdb.Repository
	service userservice.Service
	logger  *slog.Logger
}

// NewUserModule wires the username index service. When apiRouter is non-nil
// the admin routes are mounted on it under /admin/usernames behind
// authenticate.
func NewUserModule(
	ctx context.Context,
	obs observability.Observability,
	repo userdb.Repository,
	eventBus eventbus.EventBus,
	apiRouter chi.Router,
	authenticate func(http.Handler) http.Handler,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing user module")

	service := userservice.NewUsernameSync(repo, eventBus, logger, obs.Registry.User, obs.Tracer)

	if apiRouter != nil {
		handlers := userhandlers.NewUserHandlers(service, logger, obs.Tracer)
		apiRouter.Route("/admin/usernames", func(r chi.Router) {
			r.Use(authenticate)
			r.With(authhandlers.RequireRole(authdomain.RoleModerator)).Get("/scan", handlers.HandleScan)
			r.With(authhandlers.RequireRole(authdomain.RoleAdmin)).Post("/fix", handlers.HandleFix)
		})
	}

	return &Module{repo: repo, service: service, logger: logger}, nil
}

// GetService returns the username sync service.
func (m *Module) GetService() userservice.Service {
	return m.service
}

// GetRepository returns the user repository shared with the auth module.
func (m *Module) GetRepository() userdb.Repository {
	return m.repo
}

// Close stops the user module.
func (m *Module) Close() error {
	m.logger.Info("User module stopped")
	return nil
}
