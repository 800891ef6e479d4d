package agents

import (
	"context"
	"fmt"

	"github.com/mkohler/newsroom/pkg/domain"
)

// Critic reviews reports for clarity, logic gaps, bias, and
// completeness, scoring them and approving or requesting revision.
type Critic struct {
	llm         domain.LLMClient
	temperature float64
}

// NewCritic creates the critic agent.
func NewCritic(llm domain.LLMClient) *Critic {
	return &Critic{
		llm:         llm,
		temperature: 0.4,
	}
}

// Name implements domain.Agent.
func (c *Critic) Name() string {
	return "critic"
}

// Description implements domain.Agent.
func (c *Critic) Description() string {
	return "Reviews reports for clarity, logic, and completeness"
}

// Validate accepts a report event.
func (c *Critic) Validate(input interface{}) bool {
	ev, ok := input.(*domain.ReportEvent)
	return ok && ev != nil
}

// Execute implements domain.Agent.
func (c *Critic) Execute(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
	ev, ok := input.(*domain.ReportEvent)
	if !ok {
		return nil, &InvalidInputError{Agent: c.Name()}
	}
	return c.Review(ctx, ev, actx)
}

// Review runs the review stage over a written report.
func (c *Critic) Review(ctx context.Context, report *domain.ReportEvent, actx *domain.AgentContext) (*domain.ReviewEvent, error) {
	userPrompt := fmt.Sprintf(`Review the following report:

TITLE: %s

CONTENT:
%s

Provide your review in JSON format with:
- suggestions: list of specific improvement suggestions
- score: quality score from 0.0 to 1.0
- approved: boolean, true if report is ready for publication`,
		report.Title, report.Content)

	content, err := chat(ctx, c.llm, criticSystemPrompt, userPrompt, c.temperature)
	if err != nil {
		return nil, err
	}

	suggestions, score, approved := parseReviewResponse(content)

	return domain.NewReviewEvent(suggestions, score, approved, actx.CorrelationID), nil
}

func parseReviewResponse(content string) (suggestions []string, score float64, approved bool) {
	data, ok := ExtractJSON(content)
	if !ok {
		return []string{"Unable to parse review - manual review needed"}, 0.5, false
	}

	suggestions = stringSlice(data, "suggestions")
	score = floatValue(data, "score", 0.5)
	approved = boolValue(data, "approved", false)
	return suggestions, score, approved
}
