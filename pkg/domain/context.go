package domain

import (
	"time"

	"github.com/google/uuid"
)

// AgentContext is created once per workflow execution and passed to every
// agent call. Agents read it and may add tracing metadata; nothing else is
// mutated after creation.
type AgentContext struct {
	CorrelationID string                 `json:"correlation_id"`
	RequestID     string                 `json:"request_id"`
	CreatedAt     time.Time              `json:"created_at"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewAgentContext creates an agent context. An empty correlation id is
// replaced with a fresh unique id.
func NewAgentContext(correlationID string) *AgentContext {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &AgentContext{
		CorrelationID: correlationID,
		RequestID:     uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Metadata:      make(map[string]interface{}),
	}
}
