package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkohler/newsroom/pkg/domain"
)

// SynthesisInput carries the two upstream events the Synthesizer merges.
type SynthesisInput struct {
	Research  *domain.ResearchEvent
	FactCheck *domain.FactCheckEvent
}

// Synthesizer merges research findings and fact-check verification into
// coherent insights, resolving contradictions between sources.
type Synthesizer struct {
	llm         domain.LLMClient
	temperature float64
}

// NewSynthesizer creates the synthesizer agent.
func NewSynthesizer(llm domain.LLMClient) *Synthesizer {
	return &Synthesizer{
		llm:         llm,
		temperature: 0.5,
	}
}

// Name implements domain.Agent.
func (s *Synthesizer) Name() string {
	return "synthesizer"
}

// Description implements domain.Agent.
func (s *Synthesizer) Description() string {
	return "Merges validated research into coherent insights"
}

// Validate accepts a SynthesisInput with both events present.
func (s *Synthesizer) Validate(input interface{}) bool {
	in, ok := input.(SynthesisInput)
	return ok && in.Research != nil && in.FactCheck != nil
}

// Execute implements domain.Agent.
func (s *Synthesizer) Execute(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
	in, ok := input.(SynthesisInput)
	if !ok {
		return nil, &InvalidInputError{Agent: s.Name()}
	}
	return s.Synthesize(ctx, in.Research, in.FactCheck, actx)
}

// Synthesize runs the synthesis stage.
func (s *Synthesizer) Synthesize(ctx context.Context, research *domain.ResearchEvent, factCheck *domain.FactCheckEvent, actx *domain.AgentContext) (*domain.SynthesisEvent, error) {
	var findings strings.Builder
	for _, finding := range research.Findings {
		fmt.Fprintf(&findings, "- %s\n", finding)
	}

	var confidence strings.Builder
	for claim, score := range factCheck.ConfidenceScores {
		fmt.Fprintf(&confidence, "- %s: %g\n", claim, score)
	}

	userPrompt := fmt.Sprintf(`Synthesize the following research and fact-check results:

TOPIC: %s

FINDINGS:
%s
FACT-CHECK CONFIDENCE SCORES:
%s
Provide your synthesis in JSON format with:
- insights: list of coherent insights
- resolved_contradictions: list of how contradictions were resolved`,
		research.Topic, findings.String(), confidence.String())

	content, err := chat(ctx, s.llm, synthesizerSystemPrompt, userPrompt, s.temperature)
	if err != nil {
		return nil, err
	}

	insights, contradictions := parseSynthesisResponse(content)

	return domain.NewSynthesisEvent(insights, contradictions, actx.CorrelationID), nil
}

func parseSynthesisResponse(content string) ([]string, []domain.Contradiction) {
	data, ok := ExtractJSON(content)
	if !ok {
		return []string{content}, nil
	}

	insights := stringSlice(data, "insights")
	if len(insights) == 0 {
		insights = []string{content}
	}

	// Models return contradictions either as plain strings or as
	// issue/resolution objects.
	var contradictions []domain.Contradiction
	if items, ok := data["resolved_contradictions"].([]interface{}); ok {
		for _, item := range items {
			switch v := item.(type) {
			case string:
				contradictions = append(contradictions, domain.Contradiction{Issue: v})
			case map[string]interface{}:
				contradictions = append(contradictions, domain.Contradiction{
					Issue:      stringValue(v, "issue", ""),
					Resolution: stringValue(v, "resolution", ""),
				})
			}
		}
	}

	return insights, contradictions
}
