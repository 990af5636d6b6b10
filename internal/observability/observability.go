// Package observability wires OpenTelemetry tracing and metrics for the
// kgq pipeline. Tracers and meters are obtained from the global otel
// providers, which delegate as no-ops until Init installs real ones at
// process startup. Pipeline stages themselves stay pure and never touch
// this package directly — only the CLI command layer does (the SQL
// artifact source takes its own tracer from the global otel provider).
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Tracer is the package-level tracer every instrumented component pulls
// spans from. It is a no-op until Init installs a real TracerProvider.
var Tracer = otel.Tracer("kgq")

// Meter is the package-level meter every instrumented component pulls
// instruments from. It is a no-op until Init installs a real
// MeterProvider.
var Meter = otel.Meter("kgq")

// Shutdown flushes and stops whatever provider Init installed. The
// zero-value Shutdown (returned when exporter is "none") is a safe no-op.
type Shutdown func(context.Context) error

// Init installs a global TracerProvider/MeterProvider for the named
// exporter: "stdout" (human-readable trace/metric dumps), "otlp" (traces
// via stdout, metrics pushed over OTLP/HTTP), or "none" (no-op providers,
// the zero-cost default for tests).
func Init(ctx context.Context, exporter string) (Shutdown, error) {
	switch exporter {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		return initProviders(ctx, false)
	case "otlp":
		return initProviders(ctx, true)
	default:
		return nil, fmt.Errorf("unknown otel exporter %q (supported: stdout, otlp, none)", exporter)
	}
}

func initProviders(ctx context.Context, useOTLPMetrics bool) (Shutdown, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName("kgq")))
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}

	traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("building stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	Tracer = otel.Tracer("kgq")

	var metricReader sdkmetric.Reader
	if useOTLPMetrics {
		otlpExp, err := otlpmetrichttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("building otlp metric exporter: %w", err)
		}
		metricReader = sdkmetric.NewPeriodicReader(otlpExp)
	} else {
		stdoutExp, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("building stdout metric exporter: %w", err)
		}
		metricReader = sdkmetric.NewPeriodicReader(stdoutExp)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(metricReader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	Meter = otel.Meter("kgq")

	return func(shutdownCtx context.Context) error {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return mp.Shutdown(shutdownCtx)
	}, nil
}
