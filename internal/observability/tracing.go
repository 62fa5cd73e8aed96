// Package observability configures OpenTelemetry tracing for the relay.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/BitwaveCorp/slack-relay-svc/internal/config"
)

// ShutdownFunc flushes and stops trace export.
type ShutdownFunc func(context.Context) error

// Tracing holds the tracer provider the service was started with.
type Tracing struct {
	Provider trace.TracerProvider
	Shutdown ShutdownFunc
}

// Setup builds the tracer provider. When tracing is disabled the global no-op
// provider is returned and nothing is exported.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Tracing, error) {
	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return &Tracing{
			Provider: otel.GetTracerProvider(),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRate(cfg.SampleRate)))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing enabled",
		"endpoint", cfg.Endpoint,
		"service_name", cfg.ServiceName,
		"sample_rate", clampRate(cfg.SampleRate))

	return &Tracing{Provider: tp, Shutdown: tp.Shutdown}, nil
}

// Middleware wraps h so every inbound request gets a server span.
func Middleware(h http.Handler, operation string, tp trace.TracerProvider) http.Handler {
	return otelhttp.NewHandler(h, operation, otelhttp.WithTracerProvider(tp))
}

func clampRate(rate float64) float64 {
	switch {
	case rate < 0:
		return 0
	case rate > 1:
		return 1
	default:
		return rate
	}
}
