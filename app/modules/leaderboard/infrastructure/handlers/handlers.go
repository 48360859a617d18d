package leaderboardhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	authhandlers "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/handlers"
	leaderboardservice "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/results"
	"go.opentelemetry.io/otel/trace"
)

// RecalcQueue enqueues background recalculations.
type RecalcQueue interface {
	EnqueueRecalculation(ctx context.Context, mode leaderboarddomain.Mode, requestedBy string) (int64, error)
}

// LeaderboardHandlers serves the leaderboard read and admin endpoints.
type LeaderboardHandlers struct {
	service leaderboardservice.Service
	queue   RecalcQueue
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewLeaderboardHandlers creates the handlers. queue may be nil, in which
// case async recalculation answers 503.
func NewLeaderboardHandlers(service leaderboardservice.Service, queue RecalcQueue, logger *slog.Logger, tracer trace.Tracer) *LeaderboardHandlers {
	return &LeaderboardHandlers{
		service: service,
		queue:   queue,
		logger:  logger,
		tracer:  tracer,
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

// HandleGetLeaderboard returns the ranked entries.
func (h *LeaderboardHandlers) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleGetLeaderboard")
	defer span.End()

	limit, err := parseLimit(r)
	if err != nil {
		results.WriteError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}

	standings, err := h.service.GetLeaderboard(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to read leaderboard", attr.Error(err))
		results.WriteError(w, http.StatusInternalServerError, "failed to read leaderboard", err.Error())
		return
	}
	results.WriteJSON(w, http.StatusOK, results.Response{
		StatusMessage: results.Success(fmt.Sprintf("%d entries", len(standings.Entries))),
		Data:          standings,
	})
}

// HandleChart renders the top entries as a PNG.
func (h *LeaderboardHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleChart")
	defer span.End()

	limit, err := parseLimit(r)
	if err != nil {
		results.WriteError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}

	png, err := h.service.RenderChart(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to render leaderboard chart", attr.Error(err))
		results.WriteError(w, http.StatusInternalServerError, "failed to render chart", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// ProgressLine is one NDJSON progress record of a streamed recalculation.
type ProgressLine struct {
	Type string `json:"type"`
	leaderboardservice.Progress
}

// ResultLine is the final NDJSON record of a streamed recalculation.
type ResultLine struct {
	Type string `json:"type"`
	results.Response
}

const (
	lineProgress = "progress"
	lineResult   = "result"
)

// HandleRecalculate runs a recalculation inside the request and streams
// progress as NDJSON, one line per committed chunk, then a result line.
// The run continues if the client goes away.
func (h *LeaderboardHandlers) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleRecalculate")
	defer span.End()

	mode, err := leaderboarddomain.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		results.WriteError(w, http.StatusBadRequest, "invalid mode", err.Error())
		return
	}

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	streaming := false
	begin := func() {
		if streaming {
			return
		}
		streaming = true
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
	}

	progress := func(p leaderboardservice.Progress) {
		begin()
		if err := enc.Encode(ProgressLine{Type: lineProgress, Progress: p}); err != nil {
			return
		}
		rc.Flush()
	}

	res, err := h.service.Recalculate(context.WithoutCancel(ctx), mode, progress)
	if err != nil {
		h.logger.ErrorContext(ctx, "Leaderboard recalculation failed",
			attr.String("mode", string(mode)),
			attr.Error(err),
		)
		if !streaming {
			code := http.StatusInternalServerError
			if errors.Is(err, leaderboardservice.ErrRecalculationInProgress) {
				code = http.StatusConflict
			}
			results.WriteError(w, code, "recalculation failed", err.Error())
			return
		}
		enc.Encode(ResultLine{Type: lineResult, Response: results.Response{StatusMessage: results.Error("recalculation failed", err.Error())}})
		return
	}

	begin()
	msg := results.Success(fmt.Sprintf("%s recalculation ranked %d entries", res.Mode, res.Entries), recalcDetails(res)...)
	enc.Encode(ResultLine{Type: lineResult, Response: results.Response{StatusMessage: msg, Data: res}})
}

func recalcDetails(res leaderboardservice.RecalcResult) []string {
	var details []string
	if res.Removed > 0 {
		details = append(details, fmt.Sprintf("removed %d stale entries", res.Removed))
	}
	if res.SkippedSubmissions > 0 {
		details = append(details, fmt.Sprintf("skipped %d malformed submissions", res.SkippedSubmissions))
	}
	for _, id := range res.SkippedSubmitters {
		details = append(details, "no user document for submitter "+id)
	}
	return details
}

// HandleRecalculateAsync enqueues a recalculation job.
func (h *LeaderboardHandlers) HandleRecalculateAsync(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleRecalculateAsync")
	defer span.End()

	if h.queue == nil {
		results.WriteError(w, http.StatusServiceUnavailable, "job queue is not configured")
		return
	}

	mode, err := leaderboarddomain.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		results.WriteError(w, http.StatusBadRequest, "invalid mode", err.Error())
		return
	}

	requestedBy := ""
	if claims := authhandlers.ClaimsFromContext(ctx); claims != nil {
		requestedBy = claims.UserID
	}

	jobID, err := h.queue.EnqueueRecalculation(ctx, mode, requestedBy)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to enqueue recalculation", attr.Error(err))
		results.WriteError(w, http.StatusInternalServerError, "failed to enqueue recalculation", err.Error())
		return
	}
	results.WriteJSON(w, http.StatusAccepted, results.Response{
		StatusMessage: results.Info(fmt.Sprintf("%s recalculation queued", mode)),
		Data:          map[string]any{"jobId": jobID, "mode": mode},
	})
}

// HandleExport uploads an XLSX export and returns its location.
func (h *LeaderboardHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LeaderboardHandlers.HandleExport")
	defer span.End()

	res, err := h.service.ExportLeaderboard(ctx)
	if err != nil {
		if errors.Is(err, leaderboardservice.ErrExportUnavailable) {
			results.WriteError(w, http.StatusServiceUnavailable, "export unavailable", err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "Leaderboard export failed", attr.Error(err))
		results.WriteError(w, http.StatusInternalServerError, "export failed", err.Error())
		return
	}
	results.WriteJSON(w, http.StatusOK, results.Response{
		StatusMessage: results.Success(fmt.Sprintf("exported %d entries", res.Entries)),
		Data:          res,
	})
}
