package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// TelemetryConfig selects which signals are exported and where.
// Traces go out over OTLP/HTTP, metrics through a Prometheus reader.
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	PrometheusPort int
	SamplingRate   float64
	EnableTracing  bool
	EnableMetrics  bool
	EnableLogging  bool
}

// Telemetry owns the tracer and meter providers for the process. A
// disabled signal gets a noop implementation, so callers never have to
// check whether telemetry is on.
type Telemetry struct {
	tracer   trace.Tracer
	meter    metric.Meter
	shutdown []func(context.Context) error
}

// NewTelemetry wires up the configured providers and installs them as
// the OTel globals. A nil config yields a fully-noop instance.
func NewTelemetry(config *TelemetryConfig) (*Telemetry, error) {
	if config == nil {
		config = &TelemetryConfig{ServiceName: "newsroom"}
	}

	// Export failures retry on their own; keep the SDK's error chatter
	// out of CLI output.
	stdr.SetVerbosity(0)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {}))

	t := &Telemetry{
		tracer: tracenoop.NewTracerProvider().Tracer(config.ServiceName),
		meter:  metricnoop.NewMeterProvider().Meter(config.ServiceName),
	}

	if !config.EnableTracing && !config.EnableMetrics {
		return t, nil
	}

	res, err := buildResource(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	if config.EnableTracing {
		if err := t.setupTracing(config, res); err != nil {
			return nil, err
		}
	}
	if config.EnableMetrics {
		if err := t.setupMetrics(config, res); err != nil {
			return nil, err
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return t, nil
}

func buildResource(config *TelemetryConfig) (*resource.Resource, error) {
	hostname, _ := os.Hostname()

	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
			attribute.String("host.name", hostname),
		),
	)
}

func (t *Telemetry) setupTracing(config *TelemetryConfig, res *resource.Resource) error {
	client := otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(config.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithTimeout(10*time.Second),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
			MaxElapsedTime:  2 * time.Minute,
		}),
	)

	exporter, err := otlptrace.New(context.Background(), client)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SamplingRate)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithExportTimeout(30*time.Second),
		),
	)
	otel.SetTracerProvider(tp)

	t.tracer = tp.Tracer(config.ServiceName,
		trace.WithInstrumentationVersion(config.ServiceVersion))
	t.shutdown = append(t.shutdown, tp.Shutdown)
	return nil
}

func (t *Telemetry) setupMetrics(config *TelemetryConfig, res *resource.Resource) error {
	reader, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	t.meter = mp.Meter(config.ServiceName,
		metric.WithInstrumentationVersion(config.ServiceVersion))
	t.shutdown = append(t.shutdown, mp.Shutdown)
	return nil
}

// Tracer returns the process tracer, noop when tracing is disabled.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Meter returns the process meter, noop when metrics are disabled.
func (t *Telemetry) Meter() metric.Meter {
	return t.meter
}

// StartSpan starts a span on the process tracer.
func (t *Telemetry) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes and stops every active provider, collecting errors
// so one failing provider does not hide the rest.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
