// Package observability configures OpenTelemetry tracing for backend calls.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"relay-proxy-go/internal/config"
)

const serviceName = "relay-proxy"

// NewTracerProvider returns a provider exporting spans as JSON to w, or nil
// when tracing is disabled.
func NewTracerProvider(cfg *config.Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	if !cfg.Tracing.Enabled {
		return nil, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("tracing: stdout exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			"",
			attribute.String("service.name", serviceName),
		)),
	), nil
}

// Register installs the provider globally and flushes it on shutdown.
// No propagator is installed, so forwarded requests carry no trace headers.
func Register(lc fx.Lifecycle, tp *sdktrace.TracerProvider, logger *slog.Logger) {
	if tp == nil {
		return
	}
	otel.SetTracerProvider(tp)
	logger.Info("tracing enabled", "exporter", "stdout")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
}
