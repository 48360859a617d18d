// Package observability builds the logger, tracer and metrics registry shared
// by every module.
package observability

import (
	"io"
	"log/slog"

	"github.com/Black-And-White-Club/flagboard/config"
	"github.com/Black-And-White-Club/flagboard/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability bundles the process-wide telemetry handles.
type Observability struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Registry *metrics.Registry
}

// Init builds a JSON logger writing to w, a tracer from the global otel
// provider, and a fresh metrics registry.
func Init(cfg config.ObservabilityConfig, w io.Writer) Observability {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})).With(
		slog.String("service", cfg.ServiceName),
		slog.String("env", cfg.Environment),
	)

	return Observability{
		Logger:   logger,
		Tracer:   otel.Tracer(cfg.ServiceName),
		Registry: metrics.NewRegistry(),
	}
}

// NewNop discards logs and traces. Metrics still record into a private
// registry so callers never need nil checks.
func NewNop() Observability {
	return Observability{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:   noop.NewTracerProvider().Tracer("nop"),
		Registry: metrics.NewRegistry(),
	}
}
