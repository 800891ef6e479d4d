package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/observability"
)

// FactChecker verifies claims extracted from research findings and
// assigns confidence scores. Every finding is guaranteed a claim: when
// the model merges or drops findings, the missing ones are filled in
// with unverified placeholders.
type FactChecker struct {
	llm         domain.LLMClient
	temperature float64
	logger      *observability.StructuredLogger
}

// NewFactChecker creates the fact-checker agent.
func NewFactChecker(llm domain.LLMClient) *FactChecker {
	return &FactChecker{
		llm:         llm,
		temperature: 0.3,
		logger:      observability.NewStructuredLogger("fact_checker"),
	}
}

// Name implements domain.Agent.
func (f *FactChecker) Name() string {
	return "fact_checker"
}

// Description implements domain.Agent.
func (f *FactChecker) Description() string {
	return "Verifies claims and assigns confidence scores"
}

// Validate accepts a research event.
func (f *FactChecker) Validate(input interface{}) bool {
	ev, ok := input.(*domain.ResearchEvent)
	return ok && ev != nil
}

// Execute implements domain.Agent.
func (f *FactChecker) Execute(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
	ev, ok := input.(*domain.ResearchEvent)
	if !ok {
		return nil, &InvalidInputError{Agent: f.Name()}
	}
	return f.Check(ctx, ev, actx)
}

// Check runs the fact-check stage over a research event.
func (f *FactChecker) Check(ctx context.Context, research *domain.ResearchEvent, actx *domain.AgentContext) (*domain.FactCheckEvent, error) {
	var findings strings.Builder
	for _, finding := range research.Findings {
		fmt.Fprintf(&findings, "- %s\n", finding)
	}

	var sources strings.Builder
	for _, source := range research.Sources {
		fmt.Fprintf(&sources, "- %s: %s\n", source.Title, source.URL)
	}

	userPrompt := fmt.Sprintf(`Fact-check the following research:

TOPIC: %s

FINDINGS:
%s
SOURCES:
%s
IMPORTANT: You MUST create exactly ONE claim for EACH finding above.
Do NOT combine, merge, or summarize multiple findings into one claim.
Each finding must become a separate claim with its own status.

Provide your analysis in JSON format with:
- claims: list of objects with 'text' and 'status' keys (MUST have one per finding)
- verified_claims: list of verified claims with status
- confidence_scores: dict mapping claim text to score (0.0-1.0)

Each claim must have status: verified, partially_verified, disputed, or unverified`,
		research.Topic, findings.String(), sources.String())

	content, err := chat(ctx, f.llm, factCheckerSystemPrompt, userPrompt, f.temperature)
	if err != nil {
		return nil, err
	}

	claims, verified, scores := parseFactCheckResponse(content)
	claims = f.ensureClaimsCoverage(ctx, claims, research.Findings)

	return domain.NewFactCheckEvent(claims, verified, scores, actx.CorrelationID), nil
}

func parseFactCheckResponse(content string) (claims, verified []domain.Claim, scores map[string]float64) {
	data, ok := ExtractJSON(content)
	if !ok {
		fallback := []domain.Claim{{Text: content, Status: domain.ClaimUnverified}}
		return fallback, fallback, map[string]float64{content: 0.5}
	}

	claims = parseClaims(data, "claims")
	verified = parseClaims(data, "verified_claims")

	scores = make(map[string]float64)
	if raw, ok := data["confidence_scores"].(map[string]interface{}); ok {
		for claim, v := range raw {
			if score, ok := v.(float64); ok {
				scores[claim] = score
			}
		}
	}

	return claims, verified, scores
}

// parseClaims decodes a list of claim objects, normalizing every status
// to one of the four recognized values.
func parseClaims(data map[string]interface{}, key string) []domain.Claim {
	items, ok := data[key].([]interface{})
	if !ok {
		return nil
	}

	claims := make([]domain.Claim, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		claims = append(claims, domain.Claim{
			Text:   stringValue(m, "text", ""),
			Status: domain.NormalizeClaimStatus(stringValue(m, "status", "")),
			Note:   stringValue(m, "note", ""),
		})
	}
	return claims
}

// ensureClaimsCoverage guarantees a claim exists for every finding.
// Coverage is judged by a case-insensitive fingerprint of the finding's
// first 50 characters; uncovered findings get unverified placeholder
// claims.
func (f *FactChecker) ensureClaimsCoverage(ctx context.Context, claims []domain.Claim, findings []string) []domain.Claim {
	if len(claims) >= len(findings) {
		return claims
	}

	var missing []string
	for _, finding := range findings {
		fingerprint := claimFingerprint(finding)
		covered := false
		for _, claim := range claims {
			if strings.Contains(claimFingerprint(claim.Text), fingerprint) {
				covered = true
				break
			}
		}
		if !covered {
			missing = append(missing, finding)
		}
	}

	if len(missing) == 0 {
		return claims
	}

	f.logger.Warn(ctx, "model extracted fewer claims than findings, filling gaps", map[string]interface{}{
		"claims":   len(claims),
		"findings": len(findings),
		"missing":  len(missing),
	})

	for _, finding := range missing {
		claims = append(claims, domain.Claim{
			Text:   finding,
			Status: domain.ClaimUnverified,
			Note:   "Auto-generated - model did not extract this finding",
		})
	}
	return claims
}

func claimFingerprint(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(text) > 50 {
		return text[:50]
	}
	return text
}
