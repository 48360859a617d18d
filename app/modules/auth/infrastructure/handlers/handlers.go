package authhandlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
	"go.opentelemetry.io/otel/trace"
)

// AuthHandlers serves the authenticated identity endpoints.
type AuthHandlers struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(logger *slog.Logger, tracer trace.Tracer) *AuthHandlers {
	return &AuthHandlers{
		logger: logger,
		tracer: tracer,
	}
}

type meResponse struct {
	UserID      string          `json:"userId"`
	Email       string          `json:"email,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	Role        authdomain.Role `json:"role"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

// HandleMe echoes the caller's validated claims.
func (h *AuthHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "AuthHandlers.HandleMe")
	defer span.End()

	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meResponse{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
		ExpiresAt:   claims.ExpiresAt,
	})
}
