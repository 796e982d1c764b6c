// Package telemetry wires OpenTelemetry tracing and metrics for the
// storefront processes. Traces go to an OTLP collector, metrics are exposed
// for Prometheus scraping.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Provider bundles the process-wide tracer and meter providers.
// MetricsHandler serves the Prometheus scrape endpoint.
type Provider struct {
	MetricsHandler http.Handler

	shutdowns []func(context.Context) error
}

// Setup installs the global tracer and meter providers for the service and
// starts the Go runtime metrics collector. The OTLP endpoint comes from
// OTEL_EXPORTER_OTLP_ENDPOINT, defaulting to localhost:4317.
func Setup(ctx context.Context, serviceName, serviceVersion string) (*Provider, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := prometheus.New()
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx))
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metricExporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(15 * time.Second)); err != nil {
		return nil, errors.Join(err, mp.Shutdown(ctx), tp.Shutdown(ctx))
	}

	return &Provider{
		MetricsHandler: promhttp.Handler(),
		shutdowns: []func(context.Context) error{
			mp.Shutdown,
			tp.Shutdown,
		},
	}, nil
}

// Shutdown flushes and stops all providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdowns {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

// WithHTTPRoute records the matched mux pattern as the http.route span
// attribute; otelhttp cannot see the pattern because it wraps the mux.
func WithHTTPRoute(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Pattern != "" {
			span := oteltrace.SpanFromContext(r.Context())
			span.SetAttributes(semconv.HTTPRoute(r.Pattern))
		}
		h(w, r)
	}
}
