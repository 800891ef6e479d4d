package tools

import (
	"context"
	"fmt"

	"github.com/mkohler/newsroom/pkg/domain"
)

// SearchToolName is the registry name the search tool is registered
// under and RegistrySearcher resolves against.
const SearchToolName = "web_search"

// RegistrySearcher adapts a tool registry to domain.SearchClient:
// every search goes through the registry's web_search tool, so agents
// see the same tool surface the model does.
type RegistrySearcher struct {
	registry domain.ToolRegistry
}

// NewRegistrySearcher creates a searcher backed by registry.
func NewRegistrySearcher(registry domain.ToolRegistry) *RegistrySearcher {
	return &RegistrySearcher{registry: registry}
}

// Search implements domain.SearchClient.
func (s *RegistrySearcher) Search(ctx context.Context, query string) (string, error) {
	result, err := s.registry.Execute(ctx, SearchToolName, map[string]interface{}{
		"query": query,
	})
	if err != nil {
		return "", err
	}
	text, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("tool %s returned unexpected result %T", SearchToolName, result)
	}
	return text, nil
}
