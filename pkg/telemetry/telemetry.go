// Package telemetry installs the OpenTelemetry tracer provider used for
// preview cell spans.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const defaultServiceName = "devpreview"

// Provider owns the installed tracer provider. A nil *Provider is valid and
// means tracing is disabled.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// Setup installs an OTLP/HTTP tracer provider as the global provider if
// OTEL_EXPORTER_OTLP_ENDPOINT is set. It returns nil, nil otherwise; spans
// then go to the default no-op provider.
func Setup(ctx context.Context) (*Provider, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	p := New(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(p.provider)
	return p, nil
}

// New builds a provider with the service resource and the given options,
// without installing it globally.
func New(opts ...sdktrace.TracerProviderOption) *Provider {
	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	opts = append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)
	return &Provider{provider: sdktrace.NewTracerProvider(opts...)}
}

// Tracer returns a named tracer. On a nil Provider it returns the global
// tracer.
func (p *Provider) Tracer(name string) oteltrace.Tracer {
	if p == nil {
		return otel.Tracer(name)
	}
	return p.provider.Tracer(name)
}

// Shutdown flushes and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
