package agents

import (
	"fmt"
	"sync"

	"github.com/mkohler/newsroom/pkg/domain"
)

// Registry holds the pipeline agents by name. Instances are injected
// where needed; there is no package-level singleton.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]domain.Agent),
	}
}

// Register adds an agent. Registering a duplicate name is an error.
func (r *Registry) Register(agent domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := agent.Name()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent already registered: %s", name)
	}
	r.agents[name] = agent
	return nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, exists := r.agents[name]
	if !exists {
		return nil, fmt.Errorf("agent not found: %s", name)
	}
	return agent, nil
}

// List returns all registered agents.
func (r *Registry) List() []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]domain.Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		agents = append(agents, agent)
	}
	return agents
}
