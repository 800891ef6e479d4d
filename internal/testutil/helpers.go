package testutil

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/observability"
)

// TestTimeout provides a standard timeout for test contexts
const TestTimeout = 5 * time.Second

// NewTestContext creates a context with standard test timeout
func NewTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	t.Cleanup(cancel)
	return ctx
}

// NewTestAgentContext creates an agent context with a fixed correlation ID
func NewTestAgentContext() *domain.AgentContext {
	return domain.NewAgentContext("test-correlation-1")
}

// NewTestResearchEvent creates a populated research event for pipeline tests
func NewTestResearchEvent(topic string) *domain.ResearchEvent {
	return domain.NewResearchEvent(
		topic,
		[]domain.Source{{URL: "https://example.com/a", Title: "Source A"}},
		[]string{
			"Finding one about " + topic,
			"Finding two about " + topic,
		},
		"test-correlation-1",
	)
}

// NewTestFactCheckEvent creates a fact-check event covering the given findings
func NewTestFactCheckEvent(findings []string) *domain.FactCheckEvent {
	claims := make([]domain.Claim, len(findings))
	verified := make([]domain.Claim, 0, len(findings))
	scores := make(map[string]float64, len(findings))
	for i, f := range findings {
		claims[i] = domain.Claim{Text: f, Status: domain.ClaimVerified}
		verified = append(verified, claims[i])
		scores[f] = 0.9
	}
	return domain.NewFactCheckEvent(claims, verified, scores, "test-correlation-1")
}

// SetupTestTelemetry creates test telemetry with span recorder and metric reader
func SetupTestTelemetry(spanRecorder *tracetest.SpanRecorder, metricReader metric.Reader) *observability.Telemetry {
	tracerProvider := trace.NewTracerProvider(
		trace.WithSpanProcessor(spanRecorder),
	)
	otel.SetTracerProvider(tracerProvider)

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metricReader),
	)
	otel.SetMeterProvider(meterProvider)

	config := &observability.TelemetryConfig{
		ServiceName:    "test-service",
		ServiceVersion: "test",
		Environment:    "test",
		EnableTracing:  true,
		EnableMetrics:  true,
		EnableLogging:  true,
		SamplingRate:   1.0,
	}

	telemetry, _ := observability.NewTelemetry(config)
	return telemetry
}
