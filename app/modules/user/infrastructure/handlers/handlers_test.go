package userhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authdomain "github.com/Black-And-White-Club/flagboard/app/modules/auth/domain"
	authhandlers "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/handlers"
	userservice "github.com/Black-And-White-Club/flagboard/app/modules/user/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Details []string        `json:"details"`
	Outcome string          `json:"outcome"`
	Data    json.RawMessage `json:"data"`
}

func newHandlers(svc userservice.Service) *UserHandlers {
	return NewUserHandlers(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewTracerProvider().Tracer("test"))
}

// planFix simulates a service that found a plan of n operations and honours
// the confirm callback.
func planFix(n int) func(ctx context.Context, caller *authdomain.Claims, confirm userservice.ConfirmFunc) (userservice.FixResult, error) {
	return func(ctx context.Context, caller *authdomain.Claims, confirm userservice.ConfirmFunc) (userservice.FixResult, error) {
		if !caller.IsAdmin() {
			return userservice.FixResult{}, userservice.ErrInsufficientPrivilege
		}
		plan := userservice.PlanSummary{Operations: n, Lines: []string{"delete usernames/ghost"}}
		ok, err := confirm(ctx, plan)
		if err != nil {
			return userservice.FixResult{}, err
		}
		if !ok {
			return userservice.FixResult{Status: userservice.FixCancelled, Plan: plan}, nil
		}
		return userservice.FixResult{Status: userservice.FixCompleted, Plan: plan, Committed: n}, nil
	}
}

func TestHandleFix(t *testing.T) {
	admin := &authdomain.Claims{UserID: "root", Role: authdomain.RoleAdmin}

	tests := []struct {
		name        string
		body        string
		claims      *authdomain.Claims
		fix         func(ctx context.Context, caller *authdomain.Claims, confirm userservice.ConfirmFunc) (userservice.FixResult, error)
		wantCode    int
		wantStatus  string
		wantOutcome string
	}{
		{
			name:        "no body returns the pending plan",
			body:        "",
			claims:      admin,
			fix:         planFix(3),
			wantCode:    http.StatusOK,
			wantStatus:  "info",
			wantOutcome: "pending",
		},
		{
			name:        "confirm with wrong count cancels",
			body:        `{"confirm":true,"expectedOperations":2}`,
			claims:      admin,
			fix:         planFix(3),
			wantCode:    http.StatusOK,
			wantStatus:  "info",
			wantOutcome: "cancelled",
		},
		{
			name:        "confirm with matching count applies",
			body:        `{"confirm":true,"expectedOperations":3}`,
			claims:      admin,
			fix:         planFix(3),
			wantCode:    http.StatusOK,
			wantStatus:  "success",
			wantOutcome: "completed",
		},
		{
			name:   "nothing to do",
			body:   `{"confirm":true}`,
			claims: admin,
			fix: func(ctx context.Context, caller *authdomain.Claims, confirm userservice.ConfirmFunc) (userservice.FixResult, error) {
				return userservice.FixResult{Status: userservice.FixNothingToDo}, nil
			},
			wantCode:    http.StatusOK,
			wantStatus:  "info",
			wantOutcome: "nothing_to_do",
		},
		{
			name:       "non-admin is forbidden",
			body:       `{"confirm":true,"expectedOperations":3}`,
			claims:     &authdomain.Claims{UserID: "mod", Role: authdomain.RoleModerator},
			fix:        planFix(3),
			wantCode:   http.StatusForbidden,
			wantStatus: "error",
		},
		{
			name:   "store failure",
			body:   `{"confirm":true,"expectedOperations":3}`,
			claims: admin,
			fix: func(ctx context.Context, caller *authdomain.Claims, confirm userservice.ConfirmFunc) (userservice.FixResult, error) {
				return userservice.FixResult{}, errors.New("FixUsernames: connection refused")
			},
			wantCode:   http.StatusInternalServerError,
			wantStatus: "error",
		},
		{
			name:       "malformed body",
			body:       `{"confirm":`,
			claims:     admin,
			fix:        planFix(3),
			wantCode:   http.StatusBadRequest,
			wantStatus: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{FixFunc: tt.fix}
			h := newHandlers(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/admin/usernames/fix", strings.NewReader(tt.body))
			req = req.WithContext(authhandlers.WithClaims(req.Context(), tt.claims))
			rec := httptest.NewRecorder()
			h.HandleFix(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var resp response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantOutcome, resp.Outcome)
		})
	}
}

func TestHandleScan(t *testing.T) {
	svc := &FakeService{ScanFunc: func(ctx context.Context) (userservice.ScanReport, error) {
		return userservice.ScanReport{Issues: 1, Lines: []string{"orphan: usernames/x points to missing user y"}}, nil
	}}
	rec := httptest.NewRecorder()
	newHandlers(svc).HandleScan(rec, httptest.NewRequest(http.MethodGet, "/api/admin/usernames/scan", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "info", resp.Status)
	assert.Equal(t, []string{"orphan: usernames/x points to missing user y"}, resp.Details)
	assert.Equal(t, []string{"Scan"}, svc.Trace())
}

func TestHandleScanError(t *testing.T) {
	svc := &FakeService{ScanFunc: func(ctx context.Context) (userservice.ScanReport, error) {
		return userservice.ScanReport{}, errors.New("timeout")
	}}
	rec := httptest.NewRecorder()
	newHandlers(svc).HandleScan(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}
