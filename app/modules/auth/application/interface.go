package authservice

import (
	"context"
	"time"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
)

// Service defines the authentication service interface.
type Service interface {
	// IssueToken mints a bearer token for an existing user, carrying the
	// role stored on the user document.
	IssueToken(ctx context.Context, userID string, ttl time.Duration) (*TokenResponse, error)

	// ValidateToken validates a JWT token and returns the claims if valid.
	ValidateToken(ctx context.Context, tokenString string) (*authdomain.Claims, error)
}

type TokenResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Role      authdomain.Role    `json:"role"`
	Claims    *authdomain.Claims `json:"-"`
}
