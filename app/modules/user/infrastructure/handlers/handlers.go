package userhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	authhandlers "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/handlers"
	userservice "github.com/Black-And-White-Club/flagboard/app/modules/user/application"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/results"
	"go.opentelemetry.io/otel/trace"
)

// Outcomes reported by the fix endpoint in addition to the service statuses.
const (
	OutcomePending = "pending"
)

// UserHandlers serves the username index admin endpoints.
type UserHandlers struct {
	service userservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewUserHandlers creates a new UserHandlers instance.
func NewUserHandlers(service userservice.Service, logger *slog.Logger, tracer trace.Tracer) *UserHandlers {
	return &UserHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleScan reports drift between users and the username index.
func (h *UserHandlers) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UserHandlers.HandleScan")
	defer span.End()

	report, err := h.service.Scan(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Username scan failed", attr.Error(err))
		results.WriteError(w, http.StatusInternalServerError, "username scan failed", err.Error())
		return
	}

	msg := results.Success("username index is consistent")
	if report.Issues > 0 {
		msg = results.Info(fmt.Sprintf("%d username issues found", report.Issues), report.Lines...)
	}
	results.WriteJSON(w, http.StatusOK, results.Response{StatusMessage: msg, Data: report})
}

// FixRequest is the body of the fix endpoint. Nothing is written unless
// Confirm is set and ExpectedOperations matches the freshly built plan.
type FixRequest struct {
	Confirm            bool `json:"confirm"`
	ExpectedOperations int  `json:"expectedOperations"`
}

// HandleFix repairs the username index for admins.
func (h *UserHandlers) HandleFix(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UserHandlers.HandleFix")
	defer span.End()

	var req FixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		results.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	outcome := ""
	confirm := func(ctx context.Context, plan userservice.PlanSummary) (bool, error) {
		switch {
		case !req.Confirm:
			outcome = OutcomePending
			return false, nil
		case req.ExpectedOperations != plan.Operations:
			outcome = string(userservice.FixCancelled)
			return false, nil
		}
		return true, nil
	}

	res, err := h.service.Fix(ctx, authhandlers.ClaimsFromContext(ctx), confirm)
	if err != nil {
		if errors.Is(err, userservice.ErrInsufficientPrivilege) {
			results.WriteError(w, http.StatusForbidden, "admin role required")
			return
		}
		h.logger.ErrorContext(ctx, "Username repair failed", attr.Error(err))
		results.WriteError(w, http.StatusInternalServerError, "username repair failed", err.Error())
		return
	}

	if outcome == "" {
		outcome = string(res.Status)
	}

	var msg results.StatusMessage
	switch {
	case res.Status == userservice.FixNothingToDo:
		msg = results.Info("nothing to do")
	case outcome == OutcomePending:
		msg = results.Info(fmt.Sprintf("confirm %d operations to apply the repair", res.Plan.Operations), res.Plan.Lines...)
	case res.Status == userservice.FixCancelled:
		msg = results.Info(fmt.Sprintf("cancelled: expected %d operations, plan has %d", req.ExpectedOperations, res.Plan.Operations), res.Plan.Lines...)
	default:
		msg = results.Success(fmt.Sprintf("applied %d operations", res.Committed))
	}

	results.WriteJSON(w, http.StatusOK, results.Response{StatusMessage: msg, Outcome: outcome, Data: res})
}
