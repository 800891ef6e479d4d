package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event type tags carried by every domain event.
const (
	EventTypeResearchCompleted  = "research.completed"
	EventTypeFactCheckCompleted = "fact_check.completed"
	EventTypeSynthesisCompleted = "synthesis.completed"
	EventTypeReportWritten      = "report.written"
	EventTypeReportReviewed     = "report.reviewed"
)

// Event is the contract every stage output satisfies. Events are immutable
// once constructed; the correlation id is propagated unchanged from the
// workflow's AgentContext through every event of a single execution.
type Event interface {
	// ID returns the unique event identifier.
	ID() string

	// Type returns the event type tag.
	Type() string

	// OccurredAt returns the event creation time.
	OccurredAt() time.Time

	// Correlation returns the correlation id threading the execution.
	Correlation() string

	// Payload returns the event data as an open structure, mirroring the
	// typed fields of the concrete event.
	Payload() map[string]interface{}
}

// EventMeta carries the envelope fields shared by all domain events.
type EventMeta struct {
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	EventType     string    `json:"event_type"`
}

func newEventMeta(eventType, correlationID string) EventMeta {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return EventMeta{
		EventID:       uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		EventType:     eventType,
	}
}

// ID implements Event.
func (m EventMeta) ID() string { return m.EventID }

// Type implements Event.
func (m EventMeta) Type() string { return m.EventType }

// OccurredAt implements Event.
func (m EventMeta) OccurredAt() time.Time { return m.Timestamp }

// Correlation implements Event.
func (m EventMeta) Correlation() string { return m.CorrelationID }

// Source identifies one reference used during research.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// ResearchEvent is emitted when the Researcher completes a topic.
// Findings is never empty for a successfully completed stage: on parse
// failure the raw model text becomes a single finding.
type ResearchEvent struct {
	EventMeta
	Topic    string   `json:"topic"`
	Sources  []Source `json:"sources"`
	Findings []string `json:"findings"`
}

// NewResearchEvent creates a research completed event.
func NewResearchEvent(topic string, sources []Source, findings []string, correlationID string) *ResearchEvent {
	return &ResearchEvent{
		EventMeta: newEventMeta(EventTypeResearchCompleted, correlationID),
		Topic:     topic,
		Sources:   sources,
		Findings:  findings,
	}
}

// Payload implements Event.
func (e *ResearchEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"topic":    e.Topic,
		"sources":  e.Sources,
		"findings": e.Findings,
	}
}

// ClaimStatus is the verification status assigned to a claim.
type ClaimStatus string

const (
	ClaimVerified          ClaimStatus = "verified"
	ClaimPartiallyVerified ClaimStatus = "partially_verified"
	ClaimDisputed          ClaimStatus = "disputed"
	ClaimUnverified        ClaimStatus = "unverified"
)

// NormalizeClaimStatus maps arbitrary model-produced status text onto the
// four valid statuses. Casing and spacing are forgiven; anything
// unrecognized becomes unverified.
func NormalizeClaimStatus(raw string) ClaimStatus {
	s := ClaimStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_"))
	switch s {
	case ClaimVerified, ClaimPartiallyVerified, ClaimDisputed, ClaimUnverified:
		return s
	}
	return ClaimUnverified
}

// Claim is an atomic factual assertion extracted from research findings.
type Claim struct {
	Text   string      `json:"text"`
	Status ClaimStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
}

// FactCheckEvent is emitted when the Fact-Checker completes verification.
// Claim count is always >= the finding count of the research event that
// produced it; uncovered findings get synthesized unverified claims.
type FactCheckEvent struct {
	EventMeta
	Claims           []Claim            `json:"claims"`
	VerifiedClaims   []Claim            `json:"verified_claims"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

// NewFactCheckEvent creates a fact-check completed event.
func NewFactCheckEvent(claims, verified []Claim, scores map[string]float64, correlationID string) *FactCheckEvent {
	if scores == nil {
		scores = map[string]float64{}
	}
	return &FactCheckEvent{
		EventMeta:        newEventMeta(EventTypeFactCheckCompleted, correlationID),
		Claims:           claims,
		VerifiedClaims:   verified,
		ConfidenceScores: scores,
	}
}

// Payload implements Event.
func (e *FactCheckEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"claims":            e.Claims,
		"verified_claims":   e.VerifiedClaims,
		"confidence_scores": e.ConfidenceScores,
	}
}

// Contradiction records how a conflict between findings was resolved.
type Contradiction struct {
	Issue      string `json:"issue"`
	Resolution string `json:"resolution"`
}

// SynthesisEvent is emitted when the Synthesizer merges research and
// fact-check results into insights.
type SynthesisEvent struct {
	EventMeta
	Insights               []string        `json:"insights"`
	ResolvedContradictions []Contradiction `json:"resolved_contradictions"`
}

// NewSynthesisEvent creates a synthesis completed event.
func NewSynthesisEvent(insights []string, contradictions []Contradiction, correlationID string) *SynthesisEvent {
	return &SynthesisEvent{
		EventMeta:              newEventMeta(EventTypeSynthesisCompleted, correlationID),
		Insights:               insights,
		ResolvedContradictions: contradictions,
	}
}

// Payload implements Event.
func (e *SynthesisEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"insights":                e.Insights,
		"resolved_contradictions": e.ResolvedContradictions,
	}
}

// ReportFormat is the output format of a written report.
type ReportFormat string

const (
	FormatMarkdown ReportFormat = "markdown"
	FormatPlain    ReportFormat = "plain"
	FormatHTML     ReportFormat = "html"
)

// ReportEvent is emitted when the Writer completes a report.
type ReportEvent struct {
	EventMeta
	Title   string       `json:"title"`
	Content string       `json:"content"`
	Format  ReportFormat `json:"format"`
}

// NewReportEvent creates a report written event.
func NewReportEvent(title, content string, format ReportFormat, correlationID string) *ReportEvent {
	return &ReportEvent{
		EventMeta: newEventMeta(EventTypeReportWritten, correlationID),
		Title:     title,
		Content:   content,
		Format:    format,
	}
}

// Payload implements Event.
func (e *ReportEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"title":   e.Title,
		"content": e.Content,
		"format":  string(e.Format),
	}
}

// ReviewEvent is emitted when the Critic completes a review pass.
type ReviewEvent struct {
	EventMeta
	Suggestions []string `json:"suggestions"`
	Score       float64  `json:"score"`
	Approved    bool     `json:"approved"`
}

// NewReviewEvent creates a report reviewed event.
func NewReviewEvent(suggestions []string, score float64, approved bool, correlationID string) *ReviewEvent {
	return &ReviewEvent{
		EventMeta:   newEventMeta(EventTypeReportReviewed, correlationID),
		Suggestions: suggestions,
		Score:       score,
		Approved:    approved,
	}
}

// Payload implements Event.
func (e *ReviewEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"suggestions": e.Suggestions,
		"score":       e.Score,
		"approved":    e.Approved,
	}
}
