// Package workflow drives the research pipeline: a fixed stage
// progression with a bounded review/revise loop at the end. The engine
// owns the WorkflowResult for the duration of one execution and is the
// single place stage errors become a terminal status.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mkohler/newsroom/pkg/agents"
	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/observability"
)

// Stage identifies where a workflow execution currently is, or how it
// ended.
type Stage string

const (
	StageResearch  Stage = "research"
	StageFactCheck Stage = "fact_check"
	StageSynthesis Stage = "synthesis"
	StageWriting   Stage = "writing"
	StageReview    Stage = "review"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// Result accumulates stage outputs as the pipeline advances. Slots stay
// nil for stages that never completed. Once Status is StageCompleted or
// StageFailed the result is final.
type Result struct {
	Research  *domain.ResearchEvent  `json:"research,omitempty"`
	FactCheck *domain.FactCheckEvent `json:"fact_check,omitempty"`
	Synthesis *domain.SynthesisEvent `json:"synthesis,omitempty"`
	Report    *domain.ReportEvent    `json:"report,omitempty"`
	Review    *domain.ReviewEvent    `json:"review,omitempty"`

	Status        Stage  `json:"status"`
	Error         string `json:"error,omitempty"`
	Iterations    int    `json:"iterations"`
	CorrelationID string `json:"correlation_id"`
}

// Config controls the review loop and the report output.
type Config struct {
	// MaxIterations bounds the review/revise loop. Zero disables the
	// review stage entirely; the workflow still completes.
	MaxIterations int `yaml:"max_iterations"`
	// AutoApproveThreshold accepts a review whose score meets it even
	// when the critic did not approve.
	AutoApproveThreshold float64 `yaml:"auto_approve_threshold"`
	// ReportFormat is forwarded to the writing stage.
	ReportFormat domain.ReportFormat `yaml:"report_format"`
}

// DefaultConfig returns the standard workflow configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:        3,
		AutoApproveThreshold: 0.8,
		ReportFormat:         domain.FormatMarkdown,
	}
}

// Engine runs the five-stage pipeline. Stages execute strictly in
// sequence within one call; separate Execute calls may run
// concurrently because all mutable state is per-call.
type Engine struct {
	researcher  domain.Agent
	factChecker domain.Agent
	synthesizer domain.Agent
	writer      domain.Agent
	critic      domain.Agent

	config    Config
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
	logger    *observability.StructuredLogger
}

// NewEngine wires the five stage agents into an engine. Agents are
// used through the domain.Agent contract so instrumented or mock
// implementations slot in unchanged.
func NewEngine(cfg Config, researcher, factChecker, synthesizer, writer, critic domain.Agent) *Engine {
	if cfg.MaxIterations < 0 {
		cfg.MaxIterations = 0
	}
	if cfg.ReportFormat == "" {
		cfg.ReportFormat = domain.FormatMarkdown
	}
	return &Engine{
		researcher:  researcher,
		factChecker: factChecker,
		synthesizer: synthesizer,
		writer:      writer,
		critic:      critic,
		config:      cfg,
		logger:      observability.NewStructuredLogger("workflow"),
	}
}

// NewEngineFromRegistry builds an engine from a populated agent
// registry, resolving each stage by its registered name. All five
// stage agents must be present.
func NewEngineFromRegistry(cfg Config, registry *agents.Registry) (*Engine, error) {
	stages := make(map[string]domain.Agent, 5)
	for _, name := range []string{"researcher", "fact_checker", "synthesizer", "writer", "critic"} {
		agent, err := registry.Get(name)
		if err != nil {
			return nil, fmt.Errorf("workflow engine requires agent %s: %w", name, err)
		}
		stages[name] = agent
	}
	return NewEngine(cfg,
		stages["researcher"],
		stages["fact_checker"],
		stages["synthesizer"],
		stages["writer"],
		stages["critic"],
	), nil
}

// SetTelemetry attaches tracing and metrics. Without it the engine
// runs unobserved, which is what tests want.
func (e *Engine) SetTelemetry(tel *observability.Telemetry, metrics *observability.Metrics) {
	e.telemetry = tel
	e.metrics = metrics
}

// Execute runs the full pipeline including the review loop and always
// returns a complete Result; stage errors surface as Status ==
// StageFailed with Error set, never as a panic or a nil result.
func (e *Engine) Execute(ctx context.Context, topic, correlationID string) *Result {
	return e.run(ctx, topic, correlationID, true)
}

// ExecuteSequential runs research through writing with no review loop.
// The review slot stays nil and Iterations stays zero.
func (e *Engine) ExecuteSequential(ctx context.Context, topic, correlationID string) *Result {
	return e.run(ctx, topic, correlationID, false)
}

func (e *Engine) run(ctx context.Context, topic, correlationID string, withReview bool) *Result {
	actx := domain.NewAgentContext(correlationID)
	ctx = observability.WithCorrelationID(ctx, actx.CorrelationID)

	mode := "sequential"
	if withReview {
		mode = "iterative"
	}

	if e.telemetry != nil {
		workflowCtx, span := e.telemetry.StartWorkflow(ctx, actx.CorrelationID, topic, mode)
		ctx = workflowCtx
		defer span.End()
	}

	startTime := time.Now()
	if e.metrics != nil {
		e.metrics.RecordWorkflowStarted(ctx, mode)
	}

	result := &Result{
		Status:        StageResearch,
		CorrelationID: actx.CorrelationID,
	}

	e.logger.Info(ctx, "workflow started", map[string]interface{}{
		"topic": topic,
		"mode":  mode,
	})

	err := e.runPipeline(ctx, topic, actx, result)
	if err == nil && withReview {
		err = e.reviewLoop(ctx, actx, result)
	}

	if err != nil {
		result.Status = StageFailed
		result.Error = err.Error()
	} else {
		result.Status = StageCompleted
	}

	if e.metrics != nil {
		e.metrics.RecordWorkflowComplete(ctx, time.Since(startTime), string(result.Status), result.Iterations)
	}
	e.logger.Info(ctx, "workflow finished", map[string]interface{}{
		"status":     string(result.Status),
		"iterations": result.Iterations,
	})

	return result
}

// runPipeline executes research through writing, storing each event as
// it lands so a later failure still leaves earlier slots populated.
func (e *Engine) runPipeline(ctx context.Context, topic string, actx *domain.AgentContext, result *Result) error {
	result.Status = StageResearch
	research, err := e.research(ctx, topic, actx)
	if err != nil {
		return err
	}
	result.Research = research

	result.Status = StageFactCheck
	factCheck, err := e.factCheck(ctx, research, actx)
	if err != nil {
		return err
	}
	result.FactCheck = factCheck

	result.Status = StageSynthesis
	synthesis, err := e.synthesize(ctx, research, factCheck, actx)
	if err != nil {
		return err
	}
	result.Synthesis = synthesis

	result.Status = StageWriting
	report, err := e.write(ctx, synthesis, actx)
	if err != nil {
		return err
	}
	result.Report = report

	return nil
}

// reviewLoop runs the critic up to MaxIterations times. A rejection
// below the auto-approve threshold regenerates synthesis and report
// from the original research and fact-check inputs; the critique is
// not fed back into the prompts. Exhausting the iteration budget is
// not a failure.
func (e *Engine) reviewLoop(ctx context.Context, actx *domain.AgentContext, result *Result) error {
	for iteration := 1; iteration <= e.config.MaxIterations; iteration++ {
		result.Status = StageReview
		review, err := e.review(ctx, result.Report, iteration, actx)
		if err != nil {
			return err
		}
		result.Review = review
		result.Iterations = iteration

		if e.metrics != nil {
			e.metrics.RecordReviewScore(ctx, review.Score, review.Approved)
		}

		if review.Approved {
			e.logger.Info(ctx, "report approved", map[string]interface{}{
				"iteration": iteration,
				"score":     review.Score,
			})
			return nil
		}
		if review.Score >= e.config.AutoApproveThreshold {
			e.logger.Info(ctx, "report auto-approved by score", map[string]interface{}{
				"iteration": iteration,
				"score":     review.Score,
				"threshold": e.config.AutoApproveThreshold,
			})
			return nil
		}
		if iteration == e.config.MaxIterations {
			e.logger.Warn(ctx, "iteration budget exhausted, accepting last report", map[string]interface{}{
				"iterations": iteration,
				"score":      review.Score,
			})
			return nil
		}

		e.logger.Info(ctx, "report rejected, regenerating", map[string]interface{}{
			"iteration":   iteration,
			"score":       review.Score,
			"suggestions": len(review.Suggestions),
		})

		result.Status = StageSynthesis
		synthesis, err := e.synthesize(ctx, result.Research, result.FactCheck, actx)
		if err != nil {
			return err
		}
		result.Synthesis = synthesis

		result.Status = StageWriting
		report, err := e.write(ctx, synthesis, actx)
		if err != nil {
			return err
		}
		result.Report = report
	}
	return nil
}

func (e *Engine) research(ctx context.Context, topic string, actx *domain.AgentContext) (*domain.ResearchEvent, error) {
	out, err := e.execStage(ctx, StageResearch, 0, e.researcher, topic, actx)
	if err != nil {
		return nil, err
	}
	event, ok := out.(*domain.ResearchEvent)
	if !ok {
		return nil, fmt.Errorf("research stage returned unexpected output %T", out)
	}
	return event, nil
}

func (e *Engine) factCheck(ctx context.Context, research *domain.ResearchEvent, actx *domain.AgentContext) (*domain.FactCheckEvent, error) {
	out, err := e.execStage(ctx, StageFactCheck, 0, e.factChecker, research, actx)
	if err != nil {
		return nil, err
	}
	event, ok := out.(*domain.FactCheckEvent)
	if !ok {
		return nil, fmt.Errorf("fact-check stage returned unexpected output %T", out)
	}
	return event, nil
}

func (e *Engine) synthesize(ctx context.Context, research *domain.ResearchEvent, factCheck *domain.FactCheckEvent, actx *domain.AgentContext) (*domain.SynthesisEvent, error) {
	input := agents.SynthesisInput{Research: research, FactCheck: factCheck}
	out, err := e.execStage(ctx, StageSynthesis, 0, e.synthesizer, input, actx)
	if err != nil {
		return nil, err
	}
	event, ok := out.(*domain.SynthesisEvent)
	if !ok {
		return nil, fmt.Errorf("synthesis stage returned unexpected output %T", out)
	}
	return event, nil
}

func (e *Engine) write(ctx context.Context, synthesis *domain.SynthesisEvent, actx *domain.AgentContext) (*domain.ReportEvent, error) {
	input := agents.WriterInput{Synthesis: synthesis, Format: e.config.ReportFormat}
	out, err := e.execStage(ctx, StageWriting, 0, e.writer, input, actx)
	if err != nil {
		return nil, err
	}
	event, ok := out.(*domain.ReportEvent)
	if !ok {
		return nil, fmt.Errorf("writing stage returned unexpected output %T", out)
	}
	return event, nil
}

func (e *Engine) review(ctx context.Context, report *domain.ReportEvent, iteration int, actx *domain.AgentContext) (*domain.ReviewEvent, error) {
	out, err := e.execStage(ctx, StageReview, iteration, e.critic, report, actx)
	if err != nil {
		return nil, err
	}
	event, ok := out.(*domain.ReviewEvent)
	if !ok {
		return nil, fmt.Errorf("review stage returned unexpected output %T", out)
	}
	return event, nil
}

// execStage runs one agent call under tracing and metrics when they
// are attached.
func (e *Engine) execStage(ctx context.Context, stage Stage, iteration int, agent domain.Agent, input interface{}, actx *domain.AgentContext) (interface{}, error) {
	var output interface{}
	startTime := time.Now()

	call := func(ctx context.Context) error {
		var err error
		output, err = agent.Execute(ctx, input, actx)
		return err
	}

	var err error
	if e.telemetry != nil {
		err = e.telemetry.InstrumentStage(ctx, string(stage), iteration, call)
	} else {
		err = call(ctx)
	}

	if e.metrics != nil {
		e.metrics.RecordStage(ctx, string(stage), time.Since(startTime), err == nil)
	}
	return output, err
}
