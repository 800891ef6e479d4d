package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/mkohler/newsroom/pkg/domain"
)

// MockLLMClient is a mock implementation of LLMClient for testing
type MockLLMClient struct {
	mu           sync.Mutex
	Responses    map[string]string
	CallCount    int
	LastMessages []domain.Message
	ShouldError  bool
	ErrorMessage string
	// ChatFunc allows custom chat behavior for tests
	ChatFunc func(ctx context.Context, messages []domain.Message, options domain.ChatOptions) (*domain.ChatResponse, error)
}

// NewMockLLMClient creates a new mock LLM client
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Responses: make(map[string]string),
	}
}

// Chat implements domain.LLMClient
func (m *MockLLMClient) Chat(ctx context.Context, messages []domain.Message, options domain.ChatOptions) (*domain.ChatResponse, error) {
	// If ChatFunc is provided, use it without lock for concurrency testing
	if m.ChatFunc != nil {
		m.mu.Lock()
		m.CallCount++
		m.LastMessages = messages
		m.mu.Unlock()
		return m.ChatFunc(ctx, messages, options)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastMessages = messages

	if m.ShouldError {
		return nil, fmt.Errorf("%s", m.ErrorMessage)
	}

	// Return predefined response or default
	var content string
	if len(messages) > 0 {
		lastMsg := messages[len(messages)-1]
		if resp, ok := m.Responses[lastMsg.Content]; ok {
			content = resp
		} else if resp, ok := m.Responses["default"]; ok {
			content = resp
		} else {
			content = "Mock response"
		}
	}

	return &domain.ChatResponse{
		Content: content,
		Usage: domain.TokenUsage{
			PromptTokens:     50,
			CompletionTokens: 50,
			TotalTokens:      100,
		},
		FinishReason: "stop",
	}, nil
}

// GetCallCount returns the number of Chat calls made
func (m *MockLLMClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockSearchClient is a mock implementation of SearchClient for testing
type MockSearchClient struct {
	mu          sync.Mutex
	Results     string
	CallCount   int
	LastQuery   string
	ShouldError bool
	// SearchFunc allows custom search behavior for tests
	SearchFunc func(ctx context.Context, query string) (string, error)
}

// NewMockSearchClient creates a new mock search client
func NewMockSearchClient(results string) *MockSearchClient {
	return &MockSearchClient{Results: results}
}

// Search implements domain.SearchClient
func (m *MockSearchClient) Search(ctx context.Context, query string) (string, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastQuery = query
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	if m.ShouldError {
		return "", fmt.Errorf("search failed")
	}
	return m.Results, nil
}

// MockAgent is a scripted implementation of domain.Agent for testing
type MockAgent struct {
	AgentName   string
	ValidateOK  bool
	ExecuteFunc func(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error)

	mu        sync.Mutex
	CallCount int
	Inputs    []interface{}
}

// Name implements domain.Agent
func (a *MockAgent) Name() string {
	return a.AgentName
}

// Description implements domain.Agent
func (a *MockAgent) Description() string {
	return "mock agent"
}

// Validate implements domain.Agent
func (a *MockAgent) Validate(input interface{}) bool {
	return a.ValidateOK
}

// Execute implements domain.Agent
func (a *MockAgent) Execute(ctx context.Context, input interface{}, actx *domain.AgentContext) (interface{}, error) {
	a.mu.Lock()
	a.CallCount++
	a.Inputs = append(a.Inputs, input)
	a.mu.Unlock()

	if a.ExecuteFunc != nil {
		return a.ExecuteFunc(ctx, input, actx)
	}
	return nil, fmt.Errorf("no execute func configured for %s", a.AgentName)
}

// GetCallCount returns the number of Execute calls made
func (a *MockAgent) GetCallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.CallCount
}

// MockToolRegistry is a mock implementation of ToolRegistry
type MockToolRegistry struct {
	mu    sync.Mutex
	tools map[string]domain.Tool
}

// NewMockToolRegistry creates a new mock tool registry
func NewMockToolRegistry() *MockToolRegistry {
	return &MockToolRegistry{
		tools: make(map[string]domain.Tool),
	}
}

// Register implements domain.ToolRegistry
func (r *MockToolRegistry) Register(tool domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	return nil
}

// Get implements domain.ToolRegistry
func (r *MockToolRegistry) Get(name string) (domain.Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List implements domain.ToolRegistry
func (r *MockToolRegistry) List() []domain.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	tools := make([]domain.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	return tools
}

// Execute implements domain.ToolRegistry
func (r *MockToolRegistry) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return tool.Execute(ctx, args)
}

// MockTool is a mock implementation of Tool
type MockTool struct {
	ToolName        string
	ToolDescription string
	ExecuteFunc     func(context.Context, map[string]interface{}) (interface{}, error)
}

// Name implements domain.Tool
func (t *MockTool) Name() string {
	return t.ToolName
}

// Description implements domain.Tool
func (t *MockTool) Description() string {
	return t.ToolDescription
}

// Execute implements domain.Tool
func (t *MockTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if t.ExecuteFunc != nil {
		return t.ExecuteFunc(ctx, params)
	}
	return "mock result", nil
}

// Schema implements domain.Tool
func (t *MockTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Type:       "object",
		Properties: make(map[string]domain.SchemaProperty),
	}
}
