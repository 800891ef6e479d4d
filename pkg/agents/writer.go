package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkohler/newsroom/pkg/domain"
)

// WriterInput carries the synthesis and the requested output format.
type WriterInput struct {
	Synthesis *domain.SynthesisEvent
	Format    domain.ReportFormat
}

// Writer produces a polished, structured report from synthesized
// insights.
type Writer struct {
	llm         domain.LLMClient
	temperature float64
}

// NewWriter creates the writer agent.
func NewWriter(llm domain.LLMClient) *Writer {
	return &Writer{
		llm:         llm,
		temperature: 0.7,
	}
}

// Name implements domain.Agent.
func (w *Writer) Name() string {
	return "writer"
}

// Description implements domain.Agent.
func (w *Writer) Description() string {
	return "Produces polished, structured reports"
}

// Validate accepts a WriterInput with a synthesis present.
func (w *Writer) Validate(input interface{}) bool {
	in, ok := input.(WriterInput)
	return ok && in.Synthesis != nil
}

// Execute implements domain.Agent.
func (w *Writer) Execute(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
	in, ok := input.(WriterInput)
	if !ok {
		return nil, &InvalidInputError{Agent: w.Name()}
	}
	return w.Write(ctx, in.Synthesis, in.Format, actx)
}

// Write runs the writing stage.
func (w *Writer) Write(ctx context.Context, synthesis *domain.SynthesisEvent, format domain.ReportFormat, actx *domain.AgentContext) (*domain.ReportEvent, error) {
	if format == "" {
		format = domain.FormatMarkdown
	}

	var insights strings.Builder
	for _, insight := range synthesis.Insights {
		fmt.Fprintf(&insights, "- %s\n", insight)
	}

	var contradictions strings.Builder
	for _, item := range synthesis.ResolvedContradictions {
		if item.Resolution != "" {
			fmt.Fprintf(&contradictions, "- %s: %s\n", item.Issue, item.Resolution)
		} else {
			fmt.Fprintf(&contradictions, "- %s\n", item.Issue)
		}
	}

	userPrompt := fmt.Sprintf(`Write a comprehensive report based on the following synthesis:

INSIGHTS:
%s
RESOLVED CONTRADICTIONS:
%s
%s

Provide your report in JSON format with:
- title: descriptive report title
- content: the full report text
- format: the format used (markdown/plain/html)`,
		insights.String(), contradictions.String(), formatInstructions(format))

	content, err := chat(ctx, w.llm, writerSystemPrompt, userPrompt, w.temperature)
	if err != nil {
		return nil, err
	}

	title, reportContent, fmtUsed := parseReportResponse(content, format)

	return domain.NewReportEvent(title, reportContent, fmtUsed, actx.CorrelationID), nil
}

func formatInstructions(format domain.ReportFormat) string {
	switch format {
	case domain.FormatPlain:
		return "Use plain text without any formatting."
	case domain.FormatHTML:
		return "Use HTML tags for structure and formatting."
	default:
		return "Use Markdown formatting with headers, bullet points, and emphasis."
	}
}

func parseReportResponse(content string, requested domain.ReportFormat) (title, reportContent string, format domain.ReportFormat) {
	data, ok := ExtractJSON(content)
	if !ok {
		return "Research Report", content, requested
	}

	title = stringValue(data, "title", "Research Report")
	reportContent = stringValue(data, "content", content)
	format = domain.ReportFormat(stringValue(data, "format", string(requested)))
	return title, reportContent, format
}
