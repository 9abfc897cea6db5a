// Package telemetry configures OpenTelemetry tracing.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/rbplint/pkg/version"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "rbplint"

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

type options struct {
	insecure bool
}

// Opt configures [Setup].
type Opt func(o *options)

// WithInsecure disables TLS for endpoints given without a URL scheme.
func WithInsecure(insecure bool) Opt {
	return func(o *options) {
		o.insecure = insecure
	}
}

// Setup installs a global tracer provider exporting spans over OTLP/gRPC
// to endpoint. The endpoint is either host:port or a URL. An empty
// endpoint leaves the global no-op provider in place.
func Setup(ctx context.Context, endpoint string, opts ...Opt) (ShutdownFunc, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var exporterOpts []otlptracegrpc.Option
	if strings.Contains(endpoint, "://") {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithEndpointURL(endpoint))
	} else {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithEndpoint(endpoint))
		if o.insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version.GetVersion()),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}

		return nil
	}, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
