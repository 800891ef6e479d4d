package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkohler/newsroom/pkg/domain"
)

const defaultSearchBaseURL = "https://api.tavily.com"

// WebSearchConfig configures the search API client.
type WebSearchConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
}

// WebSearchClient calls a Tavily-compatible search API and renders the
// results as plain text for prompt inclusion. It implements
// domain.SearchClient.
type WebSearchClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// NewWebSearchClient creates a search client. An empty API key yields
// a client whose Configured method reports false; callers should then
// run without search rather than fail.
func NewWebSearchClient(cfg WebSearchConfig) *WebSearchClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSearchBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &WebSearchClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxResults: cfg.MaxResults,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether an API key is present.
func (c *WebSearchClient) Configured() bool {
	return c.apiKey != ""
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search implements domain.SearchClient.
func (c *WebSearchClient) Search(ctx context.Context, query string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("web search is not configured: missing API key")
	}

	body, err := json.Marshal(searchRequest{
		APIKey:     c.apiKey,
		Query:      query,
		MaxResults: c.maxResults,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	return formatResults(result), nil
}

// formatResults renders the API response as numbered plain text.
func formatResults(result searchResponse) string {
	var sb strings.Builder
	if result.Answer != "" {
		fmt.Fprintf(&sb, "Summary: %s\n\n", result.Answer)
	}
	for i, r := range result.Results {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, r.Title, r.URL)
		if r.Content != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Content)
		}
	}
	if sb.Len() == 0 {
		return "No search results found."
	}
	return strings.TrimRight(sb.String(), "\n")
}

// WebSearchTool exposes a SearchClient through the tool registry so
// model-driven tool calls can reach it.
type WebSearchTool struct {
	client domain.SearchClient
}

// NewWebSearchTool wraps a search client as a registrable tool.
func NewWebSearchTool(client domain.SearchClient) *WebSearchTool {
	return &WebSearchTool{client: client}
}

// Name returns the tool name.
func (t *WebSearchTool) Name() string {
	return SearchToolName
}

// Description returns the tool description.
func (t *WebSearchTool) Description() string {
	return "Search the web for current information on a topic"
}

// Execute runs the search.
func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	return t.client.Search(ctx, query)
}

// Schema returns the tool's parameter schema.
func (t *WebSearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Type: "object",
		Properties: map[string]domain.SchemaProperty{
			"query": {
				Type:        "string",
				Description: "The search query",
				Required:    true,
			},
		},
		Required: []string{"query"},
	}
}
