package authdomain

import "time"

// Claims represents the domain model for authentication claims.
type Claims struct {
	UserID      string
	Email       string
	DisplayName string
	Role        Role
	ExpiresAt   time.Time
	IssuedAt    time.Time
}

// IsExpired checks if the claims have expired.
func (c *Claims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsAdmin reports whether the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
