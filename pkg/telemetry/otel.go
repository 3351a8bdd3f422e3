package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	tracetype "go.opentelemetry.io/otel/trace"
)

// Options selects what Setup installs
type Options struct {
	ServiceName    string
	ServiceVersion string
	// Output receives spans and log records as JSON lines. Nil disables both signals.
	Output io.Writer
}

// Telemetry owns the OTel providers of one process run. Metrics are collected into a
// private Prometheus registry so a batch run can dump exactly its own series.
type Telemetry struct {
	registry *promclient.Registry
	tp       *trace.TracerProvider
	mp       *sdkmetric.MeterProvider
	lp       *sdklog.LoggerProvider
}

// Setup installs the global meter provider and, when opts.Output is set, the tracer and
// logger providers. The application metrics holder is initialized against the new meter.
func Setup(opts Options) (*Telemetry, error) {
	if opts.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.ServiceName),
			semconv.ServiceVersionKey.String(opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{registry: promclient.NewRegistry()}

	metricExporter, err := prometheus.New(prometheus.WithRegisterer(t.registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	t.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(metricExporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(t.mp)

	if err := GetGlobalMetrics().InitMetrics(t.mp.Meter(opts.ServiceName)); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	if opts.Output == nil {
		return t, nil
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(opts.Output))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	// one short run: export spans as they end rather than batching
	t.tp = trace.NewTracerProvider(
		trace.WithSyncer(traceExporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(t.tp)

	logExporter, err := stdoutlog.New(stdoutlog.WithWriter(opts.Output))
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	t.lp = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewSimpleProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(t.lp)

	return t, nil
}

// Gatherer exposes the run's metrics registry
func (t *Telemetry) Gatherer() promclient.Gatherer {
	return t.registry
}

// WriteMetricsFile dumps the run's metrics to path in text exposition format
func (t *Telemetry) WriteMetricsFile(path string) error {
	return WriteMetricsFileFrom(path, t.registry)
}

// Shutdown flushes and stops whichever providers were installed
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		if err := t.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown failed: %w", err))
		}
	}
	if err := t.mp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("meter provider shutdown failed: %w", err))
	}
	if t.lp != nil {
		if err := t.lp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log provider shutdown failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

func GetTracer(name string) tracetype.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

func GetMeter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}
