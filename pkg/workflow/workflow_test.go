package workflow_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkohler/newsroom/internal/testutil"
	"github.com/mkohler/newsroom/pkg/agents"
	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/observability"
	"github.com/mkohler/newsroom/pkg/workflow"
)

func init() {
	observability.SetLogOutput(io.Discard)
}

// stageAgents bundles scripted agents for one engine under test.
type stageAgents struct {
	researcher  *testutil.MockAgent
	factChecker *testutil.MockAgent
	synthesizer *testutil.MockAgent
	writer      *testutil.MockAgent
	critic      *testutil.MockAgent
}

// newStageAgents returns a full set of agents that drive a workflow to
// a happy-path completion. Tests override individual ExecuteFuncs.
func newStageAgents() *stageAgents {
	return &stageAgents{
		researcher: &testutil.MockAgent{
			AgentName:  "researcher",
			ValidateOK: true,
			ExecuteFunc: func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
				topic := input.(string)
				return domain.NewResearchEvent(topic,
					[]domain.Source{{URL: "https://example.com", Title: "Example"}},
					[]string{"finding one", "finding two", "finding three"},
					actx.CorrelationID), nil
			},
		},
		factChecker: &testutil.MockAgent{
			AgentName:  "fact_checker",
			ValidateOK: true,
			ExecuteFunc: func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
				research := input.(*domain.ResearchEvent)
				return testutil.NewTestFactCheckEvent(research.Findings), nil
			},
		},
		synthesizer: &testutil.MockAgent{
			AgentName:  "synthesizer",
			ValidateOK: true,
			ExecuteFunc: func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
				return domain.NewSynthesisEvent([]string{"insight"}, nil, actx.CorrelationID), nil
			},
		},
		writer: &testutil.MockAgent{
			AgentName:  "writer",
			ValidateOK: true,
			ExecuteFunc: func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
				in := input.(agents.WriterInput)
				return domain.NewReportEvent("Report", "content", in.Format, actx.CorrelationID), nil
			},
		},
		critic: &testutil.MockAgent{
			AgentName:  "critic",
			ValidateOK: true,
			ExecuteFunc: func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
				return domain.NewReviewEvent(nil, 0.9, true, actx.CorrelationID), nil
			},
		},
	}
}

func newTestEngine(cfg workflow.Config, a *stageAgents) *workflow.Engine {
	return workflow.NewEngine(cfg, a.researcher, a.factChecker, a.synthesizer, a.writer, a.critic)
}

func TestNewEngineFromRegistry(t *testing.T) {
	a := newStageAgents()
	registry := agents.NewRegistry()
	for _, agent := range []*testutil.MockAgent{a.researcher, a.factChecker, a.synthesizer, a.writer, a.critic} {
		require.NoError(t, registry.Register(agent))
	}

	engine, err := workflow.NewEngineFromRegistry(workflow.DefaultConfig(), registry)
	require.NoError(t, err)

	result := engine.Execute(context.Background(), "quantum computing", "corr-7")
	assert.Equal(t, workflow.StageCompleted, result.Status)
	assert.Equal(t, 1, a.critic.GetCallCount())
}

func TestNewEngineFromRegistryMissingAgent(t *testing.T) {
	a := newStageAgents()
	registry := agents.NewRegistry()
	for _, agent := range []*testutil.MockAgent{a.researcher, a.factChecker, a.synthesizer, a.writer} {
		require.NoError(t, registry.Register(agent))
	}

	_, err := workflow.NewEngineFromRegistry(workflow.DefaultConfig(), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "critic")
}

func TestExecuteHappyPath(t *testing.T) {
	a := newStageAgents()
	engine := newTestEngine(workflow.DefaultConfig(), a)

	result := engine.Execute(context.Background(), "quantum computing", "corr-42")

	assert.Equal(t, workflow.StageCompleted, result.Status)
	assert.Empty(t, result.Error)
	assert.Equal(t, "corr-42", result.CorrelationID)
	require.NotNil(t, result.Research)
	require.NotNil(t, result.FactCheck)
	require.NotNil(t, result.Synthesis)
	require.NotNil(t, result.Report)
	require.NotNil(t, result.Review)
	assert.Equal(t, 1, result.Iterations)
	assert.True(t, result.Review.Approved)
	assert.Equal(t, "corr-42", result.Research.Correlation())

	// Each stage ran exactly once.
	assert.Equal(t, 1, a.researcher.GetCallCount())
	assert.Equal(t, 1, a.factChecker.GetCallCount())
	assert.Equal(t, 1, a.synthesizer.GetCallCount())
	assert.Equal(t, 1, a.writer.GetCallCount())
	assert.Equal(t, 1, a.critic.GetCallCount())
}

func TestExecuteGeneratesCorrelationID(t *testing.T) {
	a := newStageAgents()
	engine := newTestEngine(workflow.DefaultConfig(), a)

	result := engine.Execute(context.Background(), "topic", "")
	assert.NotEmpty(t, result.CorrelationID)
}

func TestExecuteResearchFailure(t *testing.T) {
	a := newStageAgents()
	a.researcher.ExecuteFunc = func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
		return nil, errors.New("model unreachable")
	}
	engine := newTestEngine(workflow.DefaultConfig(), a)

	result := engine.Execute(context.Background(), "topic", "")

	assert.Equal(t, workflow.StageFailed, result.Status)
	assert.Contains(t, result.Error, "model unreachable")
	assert.Nil(t, result.Research)
	assert.Nil(t, result.FactCheck)
	assert.Nil(t, result.Synthesis)
	assert.Nil(t, result.Report)
	assert.Nil(t, result.Review)
	assert.Equal(t, 0, a.factChecker.GetCallCount())
}

func TestExecuteMidPipelineFailurePreservesPriorSlots(t *testing.T) {
	a := newStageAgents()
	a.synthesizer.ExecuteFunc = func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
		return nil, errors.New("synthesis exploded")
	}
	engine := newTestEngine(workflow.DefaultConfig(), a)

	result := engine.Execute(context.Background(), "topic", "")

	assert.Equal(t, workflow.StageFailed, result.Status)
	assert.Contains(t, result.Error, "synthesis exploded")
	assert.NotNil(t, result.Research)
	assert.NotNil(t, result.FactCheck)
	assert.Nil(t, result.Synthesis)
	assert.Nil(t, result.Report)
	assert.Nil(t, result.Review)
}

func TestExecuteZeroIterationsSkipsReview(t *testing.T) {
	a := newStageAgents()
	cfg := workflow.DefaultConfig()
	cfg.MaxIterations = 0
	engine := newTestEngine(cfg, a)

	result := engine.Execute(context.Background(), "topic", "")

	assert.Equal(t, workflow.StageCompleted, result.Status)
	assert.Equal(t, 0, result.Iterations)
	assert.Nil(t, result.Review)
	assert.NotNil(t, result.Report)
	assert.Equal(t, 0, a.critic.GetCallCount())
}

func TestExecuteNeverApprovedCompletesAtBudget(t *testing.T) {
	a := newStageAgents()
	a.critic.ExecuteFunc = func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
		return domain.NewReviewEvent([]string{"needs work"}, 0.5, false, actx.CorrelationID), nil
	}
	cfg := workflow.DefaultConfig()
	cfg.MaxIterations = 2
	cfg.AutoApproveThreshold = 1.0
	engine := newTestEngine(cfg, a)

	result := engine.Execute(context.Background(), "topic", "")

	assert.Equal(t, workflow.StageCompleted, result.Status)
	assert.Equal(t, 2, result.Iterations)
	require.NotNil(t, result.Review)
	assert.False(t, result.Review.Approved)
	assert.Equal(t, 2, a.critic.GetCallCount())
	// One initial pass plus one regeneration.
	assert.Equal(t, 2, a.synthesizer.GetCallCount())
	assert.Equal(t, 2, a.writer.GetCallCount())
}

func TestExecuteAutoApproveThreshold(t *testing.T) {
	a := newStageAgents()
	a.critic.ExecuteFunc = func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
		return domain.NewReviewEvent([]string{"minor nits"}, 0.85, false, actx.CorrelationID), nil
	}
	cfg := workflow.DefaultConfig()
	cfg.MaxIterations = 3
	cfg.AutoApproveThreshold = 0.8
	engine := newTestEngine(cfg, a)

	result := engine.Execute(context.Background(), "topic", "")

	assert.Equal(t, workflow.StageCompleted, result.Status)
	assert.Equal(t, 1, result.Iterations)
	assert.False(t, result.Review.Approved)
	assert.Equal(t, 1, a.critic.GetCallCount())
}

func TestExecuteRegeneratesFromOriginalInputs(t *testing.T) {
	a := newStageAgents()
	a.critic.ExecuteFunc = func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
		return domain.NewReviewEvent([]string{"redo it"}, 0.2, false, actx.CorrelationID), nil
	}
	cfg := workflow.DefaultConfig()
	cfg.MaxIterations = 2
	engine := newTestEngine(cfg, a)

	result := engine.Execute(context.Background(), "topic", "")
	require.Equal(t, workflow.StageCompleted, result.Status)

	// The regenerated synthesis must see the same research and
	// fact-check events as the first pass; the review is not fed back.
	require.Len(t, a.synthesizer.Inputs, 2)
	first := a.synthesizer.Inputs[0].(agents.SynthesisInput)
	second := a.synthesizer.Inputs[1].(agents.SynthesisInput)
	assert.Same(t, first.Research, second.Research)
	assert.Same(t, first.FactCheck, second.FactCheck)
}

func TestExecuteReviewFailureFails(t *testing.T) {
	a := newStageAgents()
	a.critic.ExecuteFunc = func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
		return nil, errors.New("critic timed out")
	}
	engine := newTestEngine(workflow.DefaultConfig(), a)

	result := engine.Execute(context.Background(), "topic", "")

	assert.Equal(t, workflow.StageFailed, result.Status)
	assert.Contains(t, result.Error, "critic timed out")
	// Pipeline slots survive the review failure.
	assert.NotNil(t, result.Report)
	assert.Nil(t, result.Review)
}

func TestExecuteSequential(t *testing.T) {
	a := newStageAgents()
	engine := newTestEngine(workflow.DefaultConfig(), a)

	result := engine.ExecuteSequential(context.Background(), "topic", "")

	assert.Equal(t, workflow.StageCompleted, result.Status)
	assert.Equal(t, 0, result.Iterations)
	assert.Nil(t, result.Review)
	assert.NotNil(t, result.Report)
	assert.Equal(t, 0, a.critic.GetCallCount())
}

func TestExecuteUnexpectedStageOutput(t *testing.T) {
	a := newStageAgents()
	a.researcher.ExecuteFunc = func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
		return "not an event", nil
	}
	engine := newTestEngine(workflow.DefaultConfig(), a)

	result := engine.Execute(context.Background(), "topic", "")
	assert.Equal(t, workflow.StageFailed, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestExecuteWithInstrumentedAgents(t *testing.T) {
	// The engine composes with the instrumentation wrapper: a failing
	// validation surfaces as a FAILED result naming the agent.
	a := newStageAgents()
	a.researcher.ValidateOK = false
	engine := workflow.NewEngine(workflow.DefaultConfig(),
		agents.Instrument(a.researcher),
		agents.Instrument(a.factChecker),
		agents.Instrument(a.synthesizer),
		agents.Instrument(a.writer),
		agents.Instrument(a.critic),
	)

	result := engine.Execute(context.Background(), "topic", "")
	assert.Equal(t, workflow.StageFailed, result.Status)
	assert.Contains(t, result.Error, "researcher")
}
