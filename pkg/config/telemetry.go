package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/version"
)

// TelemetryStdout as endpoint writes traces and metrics to stdout
const TelemetryStdout = "stdout"

type Telemetry struct {
	ctx            context.Context
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
	defer cancel()
	err := errors.Join(
		t.tracerProvider.Shutdown(ctx),
		t.meterProvider.Shutdown(ctx))
	if err != nil {
		log.Warn("telemetry shutdown", log.ErrorField(err))
	}
}

// SetupTelemetry installs global trace and meter providers exporting to
// TelemetryEndpoint via OTLP/gRPC.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", "ils"),
			attribute.String("service.version", version.Version),
		))
	if err != nil {
		return nil, err
	}
	traceExporter, metricExporter, err := newExporters(ctx)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	return &Telemetry{ctx: ctx, tracerProvider: tp, meterProvider: mp}, nil
}

//nolint:whitespace // can't make both editor and linter happy
func newExporters(ctx context.Context) (
	sdktrace.SpanExporter, sdkmetric.Exporter, error,
) {
	if TelemetryEndpoint == TelemetryStdout {
		te, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, err
		}
		me, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, err
		}
		return te, me, nil
	}
	te, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(TelemetryEndpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	me, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
		otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	return te, me, nil
}
