package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
	authjwt "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/jwt"
	userdb "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the configuration for the auth service.
type Config struct {
	DefaultTTL time.Duration
}

// service implements the Service interface.
type service struct {
	repo        userdb.Repository
	jwtProvider authjwt.Provider
	config      Config
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewService creates a new auth service.
func NewService(
	jwtProvider authjwt.Provider,
	repo userdb.Repository,
	config Config,
	logger *slog.Logger,
	tracer trace.Tracer,
) Service {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultTokenTTL
	}
	return &service{
		repo:        repo,
		jwtProvider: jwtProvider,
		config:      config,
		logger:      logger,
		tracer:      tracer,
	}
}

const DefaultTokenTTL = 12 * time.Hour

// IssueToken looks the user up and signs a token with their current role.
// Users without a role are treated as plain users.
func (s *service) IssueToken(ctx context.Context, userID string, ttl time.Duration) (*TokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.IssueToken")
	defer span.End()

	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			s.logger.WarnContext(ctx, "Token requested for unknown user", attr.UserID(userID))
			return nil, ErrUnknownUser
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	role := authdomain.Role(user.Role)
	if role == "" {
		role = authdomain.RoleUser
	}
	if !role.IsValid() {
		s.logger.WarnContext(ctx, "Invalid role on user document",
			attr.UserID(userID),
			attr.String("role", role.String()),
		)
		return nil, ErrInvalidRole
	}

	now := time.Now()
	claims := &authdomain.Claims{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        role,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}

	token, err := s.jwtProvider.GenerateToken(claims, ttl)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Failed to generate token", attr.UserID(userID), attr.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGenerateToken, err)
	}

	s.logger.InfoContext(ctx, "Issued admin token",
		attr.UserID(userID),
		attr.String("role", role.String()),
		attr.Duration("ttl", ttl),
	)

	return &TokenResponse{Token: token, ExpiresAt: claims.ExpiresAt, Role: role, Claims: claims}, nil
}

// ValidateToken validates a JWT token and returns the claims if valid.
func (s *service) ValidateToken(ctx context.Context, tokenString string) (*authdomain.Claims, error) {
	_, span := s.tracer.Start(ctx, "AuthService.ValidateToken")
	defer span.End()

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.jwtProvider.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, authjwt.ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
