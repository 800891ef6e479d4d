package observability

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// Counters
	workflowsStartedTotal   metric.Int64Counter
	workflowsCompletedTotal metric.Int64Counter
	workflowsFailedTotal    metric.Int64Counter
	stageExecutionsTotal    metric.Int64Counter
	reviewIterationsTotal   metric.Int64Counter
	llmRequestsTotal        metric.Int64Counter
	llmTokensUsedTotal      metric.Int64Counter
	toolExecutionsTotal     metric.Int64Counter
	breakerTransitionsTotal metric.Int64Counter

	// Histograms
	workflowDuration   metric.Float64Histogram
	stageDuration      metric.Float64Histogram
	llmRequestDuration metric.Float64Histogram
	toolDuration       metric.Float64Histogram
	reviewScore        metric.Float64Histogram

	// Gauges (using async instruments)
	activeWorkflows metric.Int64ObservableGauge

	activeWorkflowCount atomic.Int64
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{
		meter: meter,
	}

	var err error

	m.workflowsStartedTotal, err = meter.Int64Counter(
		"workflows_started_total",
		metric.WithDescription("Total number of workflow executions started"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.workflowsCompletedTotal, err = meter.Int64Counter(
		"workflows_completed_total",
		metric.WithDescription("Total number of workflow executions completed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.workflowsFailedTotal, err = meter.Int64Counter(
		"workflows_failed_total",
		metric.WithDescription("Total number of workflow executions failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.stageExecutionsTotal, err = meter.Int64Counter(
		"stage_executions_total",
		metric.WithDescription("Total number of pipeline stage executions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.reviewIterationsTotal, err = meter.Int64Counter(
		"review_iterations_total",
		metric.WithDescription("Total number of review loop iterations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.llmTokensUsedTotal, err = meter.Int64Counter(
		"llm_tokens_used_total",
		metric.WithDescription("Total number of LLM tokens used"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.toolExecutionsTotal, err = meter.Int64Counter(
		"tool_executions_total",
		metric.WithDescription("Total number of tool executions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.breakerTransitionsTotal, err = meter.Int64Counter(
		"circuit_breaker_transitions_total",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.workflowDuration, err = meter.Float64Histogram(
		"workflow_duration_seconds",
		metric.WithDescription("Duration of workflow executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.stageDuration, err = meter.Float64Histogram(
		"stage_duration_seconds",
		metric.WithDescription("Duration of pipeline stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.llmRequestDuration, err = meter.Float64Histogram(
		"llm_request_duration_seconds",
		metric.WithDescription("Duration of LLM requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.toolDuration, err = meter.Float64Histogram(
		"tool_execution_duration_seconds",
		metric.WithDescription("Duration of tool executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.reviewScore, err = meter.Float64Histogram(
		"review_score",
		metric.WithDescription("Critic review scores"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.activeWorkflows, err = meter.Int64ObservableGauge(
		"active_workflows",
		metric.WithDescription("Number of workflow executions in flight"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.activeWorkflowCount.Load())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordWorkflowStarted records the start of a workflow execution
func (m *Metrics) RecordWorkflowStarted(ctx context.Context, mode string) {
	m.workflowsStartedTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
		),
	)
	m.activeWorkflowCount.Add(1)
}

// RecordWorkflowComplete records completion of a workflow execution
func (m *Metrics) RecordWorkflowComplete(ctx context.Context, duration time.Duration, status string, iterations int) {
	if status == "completed" {
		m.workflowsCompletedTotal.Add(ctx, 1)
	} else {
		m.workflowsFailedTotal.Add(ctx, 1)
	}

	m.workflowDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
	m.reviewIterationsTotal.Add(ctx, int64(iterations))
	m.activeWorkflowCount.Add(-1)
}

// RecordStage records a pipeline stage execution
func (m *Metrics) RecordStage(ctx context.Context, stage string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	m.stageExecutionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
	m.stageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
		),
	)
}

// RecordReviewScore records a critic score
func (m *Metrics) RecordReviewScore(ctx context.Context, score float64, approved bool) {
	m.reviewScore.Record(ctx, score,
		metric.WithAttributes(
			attribute.Bool("approved", approved),
		),
	)
}

// RecordLLMRequest records an LLM request
func (m *Metrics) RecordLLMRequest(ctx context.Context, model string, promptTokens, completionTokens int64, duration time.Duration) {
	m.llmRequestsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
		),
	)

	m.llmTokensUsedTotal.Add(ctx, promptTokens+completionTokens,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("type", "total"),
		),
	)

	m.llmRequestDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("model", model),
		),
	)
}

// RecordToolExecution records a tool execution
func (m *Metrics) RecordToolExecution(ctx context.Context, toolName string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	m.toolExecutionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", toolName),
			attribute.String("status", status),
		),
	)

	m.toolDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("tool", toolName),
			attribute.String("status", status),
		),
	)
}

// RecordBreakerTransition records a circuit breaker state change
func (m *Metrics) RecordBreakerTransition(ctx context.Context, name, oldState, newState string) {
	m.breakerTransitionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("circuit", name),
			attribute.String("from", oldState),
			attribute.String("to", newState),
		),
	)
}

// GetActiveWorkflowCount returns the number of workflow executions in flight
func (m *Metrics) GetActiveWorkflowCount() int64 {
	return m.activeWorkflowCount.Load()
}
