// Package observability wires OpenTelemetry distributed tracing into the
// application. Spans flow through Genkit's TracerProvider, so every model
// call and flow step is traced alongside our own spans, and are exported to
// any OTLP-over-HTTP collector (Jaeger, Grafana Tempo, a vendor agent).
//
// Environment variables (optional):
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector endpoint (default: localhost:4318)
//
// Config file (~/.sturdy/config.yaml):
//
//	otel:
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "sturdy"
//	  enabled: true
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sturdystudy/sturdy/internal/log"
)

// Config for tracing setup.
type Config struct {
	// Endpoint is the OTLP HTTP collector endpoint (default: localhost:4318)
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name reported on spans
	ServiceName string
}

// DefaultEndpoint is the default OTLP HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// SetupTracing registers an OTLP exporter with Genkit's TracerProvider.
//
// Returns a shutdown function that flushes pending spans. An unreachable
// collector degrades to disabled tracing instead of failing startup; the
// exporter retries in the background.
func SetupTracing(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = log.NewNop()
	}

	// Genkit's TracerProvider reads service identity from the OTEL
	// environment at span-resource build time.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter failed, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
