package agents

import (
	"context"
	"fmt"

	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/observability"
)

// InvalidInputError reports that an agent rejected its input during
// validation. It names the agent so pipeline failures are attributable.
type InvalidInputError struct {
	Agent string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for agent %s", e.Agent)
}

// instrumentedAgent composes the cross-cutting execution behavior
// around a concrete agent: correlation scoping, input validation, and
// outcome logging. Concrete agents only implement their stage
// transformation.
type instrumentedAgent struct {
	inner  domain.Agent
	logger *observability.StructuredLogger
}

// Instrument wraps an agent with the shared execution behavior. All
// agents entering the workflow engine pass through here.
func Instrument(inner domain.Agent) domain.Agent {
	return &instrumentedAgent{
		inner:  inner,
		logger: observability.NewStructuredLogger(inner.Name()),
	}
}

func (a *instrumentedAgent) Name() string {
	return a.inner.Name()
}

func (a *instrumentedAgent) Description() string {
	return a.inner.Description()
}

func (a *instrumentedAgent) Validate(input interface{}) bool {
	return a.inner.Validate(input)
}

func (a *instrumentedAgent) Execute(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
	if actx != nil {
		ctx = observability.WithCorrelationID(ctx, actx.CorrelationID)
	}

	a.logger.Info(ctx, "executing agent", map[string]interface{}{
		"agent": a.inner.Name(),
		"input": fmt.Sprintf("%T", input),
	})

	if !a.inner.Validate(input) {
		err := &InvalidInputError{Agent: a.inner.Name()}
		a.logger.Error(ctx, "input validation failed", err, map[string]interface{}{
			"agent": a.inner.Name(),
		})
		return nil, err
	}

	output, err := a.inner.Execute(ctx, input, actx)
	if err != nil {
		a.logger.Error(ctx, "agent failed", err, map[string]interface{}{
			"agent": a.inner.Name(),
		})
		return nil, err
	}

	a.logger.Info(ctx, "agent completed", map[string]interface{}{
		"agent": a.inner.Name(),
	})
	return output, nil
}

// chat sends a system+user message pair and returns the raw content.
// Shared by every agent.
func chat(ctx context.Context, client domain.LLMClient, systemPrompt, userPrompt string, temperature float64) (string, error) {
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: userPrompt},
	}

	response, err := client.Chat(ctx, messages, domain.ChatOptions{
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return response.Content, nil
}
