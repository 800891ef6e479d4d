package resilience

import "sync"

// BreakerStatus pairs a breaker's state with its statistics for
// admin reporting.
type BreakerStatus struct {
	State State        `json:"state"`
	Stats BreakerStats `json:"stats"`
}

// BreakerRegistry manages named circuit breakers. Callers hold a
// registry instance and share it explicitly; there is no package-level
// singleton.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	defaults BreakerConfig
	observer StateObserver
}

// NewBreakerRegistry creates a registry. Breakers created through
// GetOrCreate without an explicit config use defaults; observer (may be
// nil) is attached to every breaker the registry creates.
func NewBreakerRegistry(defaults BreakerConfig, observer StateObserver) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults,
		observer: observer,
	}
}

// GetOrCreate returns the breaker registered under name, creating it
// with the registry defaults on first use.
func (r *BreakerRegistry) GetOrCreate(name string) *CircuitBreaker {
	return r.GetOrCreateWith(name, r.defaults)
}

// GetOrCreateWith returns the breaker registered under name, creating
// it with config on first use. An existing breaker keeps its original
// configuration.
func (r *BreakerRegistry) GetOrCreateWith(name string, config BreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cb := NewCircuitBreaker(name, config, r.observer)
	r.breakers[name] = cb
	return cb
}

// Get returns the breaker registered under name, if any.
func (r *BreakerRegistry) Get(name string) (*CircuitBreaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// Reset forces the named breaker closed. It reports false when no such
// breaker exists.
func (r *BreakerRegistry) Reset(name string) bool {
	cb, ok := r.Get(name)
	if !ok {
		return false
	}
	cb.Reset()
	return true
}

// States returns the state and statistics of every registered breaker.
func (r *BreakerRegistry) States() map[string]BreakerStatus {
	r.mu.Lock()
	names := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		names = append(names, cb)
	}
	r.mu.Unlock()

	states := make(map[string]BreakerStatus, len(names))
	for _, cb := range names {
		states[cb.Name()] = BreakerStatus{State: cb.State(), Stats: cb.Stats()}
	}
	return states
}
