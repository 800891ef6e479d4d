package domain

import (
	"context"
)

// Message roles used for model invocations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged message sent to a language model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions provides options for chat completions.
type ChatOptions struct {
	Model       string   `json:"model,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ChatResponse represents a chat completion response.
type ChatResponse struct {
	Content      string     `json:"content"`
	Usage        TokenUsage `json:"usage"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMClient is the model-invocation capability consumed by every agent.
// Implementations may fail with provider-specific transient or permanent
// errors; the resilience layer classifies them.
type LLMClient interface {
	// Chat performs a chat completion.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error)
}

// SearchClient is the web-search capability consumed by the Researcher.
// It may be unavailable (absent configuration), in which case the agent
// degrades gracefully instead of failing.
type SearchClient interface {
	// Search performs a web search and returns formatted results.
	Search(ctx context.Context, query string) (string, error)
}

// Agent is the uniform contract every pipeline agent satisfies. Execute is
// the only entry point callers use; concrete agents supply the stage
// transformation and input validation, while the cross-cutting behavior
// (correlation scoping, validation failure, logging) is composed around
// them by a wrapper.
type Agent interface {
	// Name returns the unique agent identifier.
	Name() string

	// Description returns a brief statement of the agent's purpose.
	Description() string

	// Validate reports whether the input has the shape this agent expects.
	Validate(input interface{}) bool

	// Execute runs the agent's transformation for one stage.
	Execute(ctx context.Context, input interface{}, actx *AgentContext) (interface{}, error)
}

// Tool defines the interface for agent-callable tools.
type Tool interface {
	// Name returns the tool name.
	Name() string

	// Description returns the tool description.
	Description() string

	// Execute executes the tool with given arguments.
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)

	// Schema returns the tool's parameter schema.
	Schema() ToolSchema
}

// ToolRegistry manages available tools.
type ToolRegistry interface {
	// Register registers a new tool.
	Register(tool Tool) error

	// Get retrieves a tool by name.
	Get(name string) (Tool, error)

	// List returns all available tools.
	List() []Tool

	// Execute executes a tool by name.
	Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// ToolSchema defines the parameter schema for a tool.
type ToolSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]SchemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// SchemaProperty defines a property in a tool schema.
type SchemaProperty struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Required    bool        `json:"required,omitempty"`
}
