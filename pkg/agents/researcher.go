package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/observability"
)

// Researcher collects raw information, sources, and key findings for a
// topic. When a search client is available the results are fed to the
// model; without one the agent degrades to model knowledge alone.
type Researcher struct {
	llm         domain.LLMClient
	search      domain.SearchClient
	temperature float64
	logger      *observability.StructuredLogger
}

// NewResearcher creates the researcher agent. search may be nil.
func NewResearcher(llm domain.LLMClient, search domain.SearchClient) *Researcher {
	return &Researcher{
		llm:         llm,
		search:      search,
		temperature: 0.7,
		logger:      observability.NewStructuredLogger("researcher"),
	}
}

// Name implements domain.Agent.
func (r *Researcher) Name() string {
	return "researcher"
}

// Description implements domain.Agent.
func (r *Researcher) Description() string {
	return "Collects raw information, sources, and key findings"
}

// Validate accepts a non-blank topic string.
func (r *Researcher) Validate(input interface{}) bool {
	topic, ok := input.(string)
	return ok && strings.TrimSpace(topic) != ""
}

// Execute implements domain.Agent.
func (r *Researcher) Execute(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
	topic, ok := input.(string)
	if !ok {
		return nil, &InvalidInputError{Agent: r.Name()}
	}
	return r.Research(ctx, topic, actx)
}

// Research runs the research stage for a topic.
func (r *Researcher) Research(ctx context.Context, topic string, actx *domain.AgentContext) (*domain.ResearchEvent, error) {
	searchResults := r.searchWeb(ctx, topic)

	userPrompt := fmt.Sprintf(`TOPIC: %s

SEARCH RESULTS:
%s

IMPORTANT: Extract AT LEAST 5 distinct findings from the search results above.
For each finding, identify which source it came from.

Provide your findings in EXACTLY this JSON format:
{
    "sources": [
        {"url": "source url", "title": "source title", "date": "publication date or N/A"}
    ],
    "findings": [
        "Finding 1: ...",
        "Finding 2: ...",
        "Finding 3: ...",
        "Finding 4: ...",
        "Finding 5: ..."
    ]
}

DO NOT include any other text - ONLY the JSON object.`, topic, searchResults)

	content, err := chat(ctx, r.llm, researcherSystemPrompt, userPrompt, r.temperature)
	if err != nil {
		return nil, err
	}

	sources, findings := parseResearchResponse(content)

	return domain.NewResearchEvent(topic, sources, findings, actx.CorrelationID), nil
}

// searchWeb performs the web search, degrading to a placeholder message
// when no client is configured or the search fails. The stage never
// fails on search problems.
func (r *Researcher) searchWeb(ctx context.Context, topic string) string {
	if r.search == nil {
		return "Web search is not configured."
	}

	results, err := r.search.Search(ctx, topic)
	if err != nil {
		r.logger.Warn(ctx, "web search failed, continuing without results", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Sprintf("Web search failed: %s", err)
	}
	return results
}

func parseResearchResponse(content string) ([]domain.Source, []string) {
	data, ok := ExtractJSON(content)
	if !ok {
		// Unstructured output becomes a single finding.
		return nil, []string{content}
	}

	var sources []domain.Source
	if items, ok := data["sources"].([]interface{}); ok {
		for _, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			sources = append(sources, domain.Source{
				URL:   stringValue(m, "url", ""),
				Title: stringValue(m, "title", ""),
				Date:  stringValue(m, "date", ""),
			})
		}
	}

	findings := stringSlice(data, "findings")
	if len(findings) == 0 {
		findings = []string{content}
	}

	return sources, findings
}
