// Package telemetry wires OpenTelemetry tracing, metrics and logs for a
// build. Every task becomes a span under one build span; task outcomes feed
// a counter and a duration histogram; the slog bridge forwards log records.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/specialistvlad/buildgridgo"

// Telemetry owns the SDK providers and the instruments derived from them.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider

	tracer       trace.Tracer
	taskCounter  metric.Int64Counter
	taskDuration metric.Float64Histogram
	buildTime    metric.Float64Counter
}

// Setup creates stdout exporters writing to w and registers the providers
// globally.
func Setup(ctx context.Context, w io.Writer) (*Telemetry, error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	logExporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	t := &Telemetry{
		tracerProvider: sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter)),
		meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second)),
		)),
		loggerProvider: sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter))),
	}
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetMeterProvider(t.meterProvider)
	global.SetLoggerProvider(t.loggerProvider)

	t.tracer = t.tracerProvider.Tracer(instrumentationName)
	meter := t.meterProvider.Meter(instrumentationName)
	if t.taskCounter, err = meter.Int64Counter("buildgrid.tasks",
		metric.WithDescription("Tasks settled, by outcome."),
		metric.WithUnit("{task}")); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.taskDuration, err = meter.Float64Histogram("buildgrid.task.duration",
		metric.WithDescription("Wall time of executed tasks."),
		metric.WithUnit("s")); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.buildTime, err = meter.Float64Counter("buildgrid.build.duration",
		metric.WithDescription("Accumulated wall time of builds."),
		metric.WithUnit("s")); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	return t, nil
}

// Handler returns an slog handler that forwards records to the log
// provider.
func (t *Telemetry) Handler() slog.Handler {
	return otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(t.loggerProvider))
}

// Shutdown flushes and stops every provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.tracerProvider.Shutdown(ctx),
		t.meterProvider.Shutdown(ctx),
		t.loggerProvider.Shutdown(ctx),
	)
}
