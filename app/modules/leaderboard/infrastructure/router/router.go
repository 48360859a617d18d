package leaderboardrouter

import (
	"context"
	"errors"
	"log/slog"

	leaderboardservice "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/flagboard/internal/attr"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/events"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Recalculator is the part of the leaderboard service driven by commands.
type Recalculator interface {
	Recalculate(ctx context.Context, mode leaderboarddomain.Mode, progress leaderboardservice.ProgressFunc) (leaderboardservice.RecalcResult, error)
}

// LeaderboardRouter consumes leaderboard commands from the event bus.
type LeaderboardRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     eventbus.EventBus
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewLeaderboardRouter creates a new instance of the router. A nil
// prometheusRegistry disables router metrics.
func NewLeaderboardRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	tracer trace.Tracer,
	prometheusRegistry prometheus.Registerer,
) *LeaderboardRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "flagboard", "leaderboard")
		metricsBuilder = &builder
	}

	return &LeaderboardRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the middlewares and registers the command handlers.
func (r *LeaderboardRouter) Configure(ctx context.Context, recalculator Recalculator) error {
	if r.metricsBuilder != nil {
		r.logger.InfoContext(ctx, "Adding Prometheus router metrics middleware for Leaderboard")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)

	r.Router.AddNoPublisherHandler(
		"leaderboard."+events.LeaderboardRecalculateRequestedV1,
		events.LeaderboardRecalculateRequestedV1,
		r.subscriber,
		r.handleRecalculateRequested(recalculator),
	)
	return nil
}

// handleRecalculateRequested runs the requested recalculation. Every message
// is acked: malformed commands are dropped and failed runs are not retried.
func (r *LeaderboardRouter) handleRecalculateRequested(recalculator Recalculator) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx := eventbus.MessageContext(msg)
		ctx, span := r.tracer.Start(ctx, "LeaderboardRouter.RecalculateRequested")
		defer span.End()

		payload, err := eventbus.DecodeJSON[events.LeaderboardRecalculateRequestedPayload](msg)
		if err != nil {
			r.logger.WarnContext(ctx, "Dropping malformed recalculation command", attr.ExtractCorrelationID(ctx), attr.Error(err))
			return nil
		}
		mode, err := leaderboarddomain.ParseMode(payload.Mode)
		if err != nil {
			r.logger.WarnContext(ctx, "Dropping recalculation command", attr.ExtractCorrelationID(ctx), attr.Error(err))
			return nil
		}
		span.SetAttributes(attribute.String("mode", string(mode)), attribute.String("requested_by", payload.RequestedBy))

		res, err := recalculator.Recalculate(ctx, mode, nil)
		switch {
		case errors.Is(err, leaderboardservice.ErrRecalculationInProgress):
			r.logger.InfoContext(ctx, "Recalculation already running, command ignored",
				attr.ExtractCorrelationID(ctx),
				attr.String("mode", string(mode)),
			)
		case err != nil:
			span.RecordError(err)
			r.logger.ErrorContext(ctx, "Requested recalculation failed",
				attr.ExtractCorrelationID(ctx),
				attr.String("mode", string(mode)),
				attr.String("requested_by", payload.RequestedBy),
				attr.Error(err),
			)
		default:
			r.logger.InfoContext(ctx, "Requested recalculation finished",
				attr.ExtractCorrelationID(ctx),
				attr.String("mode", string(mode)),
				attr.String("requested_by", payload.RequestedBy),
				attr.Int("entries", res.Entries),
			)
		}
		return nil
	}
}

// Close stops the router.
func (r *LeaderboardRouter) Close() error {
	return r.Router.Close()
}
