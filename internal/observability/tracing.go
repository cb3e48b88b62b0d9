// Package observability wires tracing, metrics, and health checks for the
// orchestration service.
package observability

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const defaultServiceName = "tripcourier"

// TracingConfig controls trace exporting.
type TracingConfig struct {
	// ServiceName defaults to "tripcourier".
	ServiceName string
	// Exporter is "otlp", "stdout", or "none".
	Exporter string
	// OTLPEndpoint overrides the collector endpoint for the otlp exporter.
	OTLPEndpoint string
	// OTLPHeaders are extra request headers, e.g. authorization.
	OTLPHeaders map[string]string
}

// TracingConfigFromEnv reads the standard OpenTelemetry variables:
// OTEL_SERVICE_NAME, OTEL_TRACES_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT,
// OTEL_EXPORTER_OTLP_HEADERS ("k1=v1,k2=v2").
func TracingConfigFromEnv() TracingConfig {
	cfg := TracingConfig{
		ServiceName:  os.Getenv("OTEL_SERVICE_NAME"),
		Exporter:     os.Getenv("OTEL_TRACES_EXPORTER"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if raw := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); raw != "" {
		cfg.OTLPHeaders = make(map[string]string)
		for _, pair := range strings.Split(raw, ",") {
			if k, v, ok := strings.Cut(strings.TrimSpace(pair), "="); ok {
				cfg.OTLPHeaders[k] = v
			}
		}
	}
	return cfg
}

// InitTracing installs the global tracer provider and returns its shutdown
// function. Exporter "none" (or empty) installs nothing and returns a no-op.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if cfg.Exporter == "" || cfg.Exporter == "none" {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case "otlp":
		opts := []otlptracehttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		}
		if len(cfg.OTLPHeaders) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.OTLPHeaders))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
