package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/observability"
	"github.com/mkohler/newsroom/pkg/resilience"
)

// ResilientCaller wraps an LLM client with retry and circuit breaker
// protection. Each model name gets its own breaker from the shared
// registry; the breaker gate is checked before the retry loop, so a
// rejected call consumes no retry attempts, and the breaker records
// exactly one outcome per completed attempt sequence.
type ResilientCaller struct {
	client   domain.LLMClient
	model    string
	policy   *resilience.RetryPolicy
	registry *resilience.BreakerRegistry
	logger   *observability.StructuredLogger
}

// NewResilientCaller creates a resilient wrapper around client. The
// model name identifies the circuit breaker; registry and policy are
// shared across callers.
func NewResilientCaller(client domain.LLMClient, model string, policy *resilience.RetryPolicy, registry *resilience.BreakerRegistry) (*ResilientCaller, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if policy == nil {
		return nil, fmt.Errorf("retry policy is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("breaker registry is required")
	}

	return &ResilientCaller{
		client:   client,
		model:    model,
		policy:   policy,
		registry: registry,
		logger:   observability.NewStructuredLogger("resilient_llm"),
	}, nil
}

// Breaker returns the circuit breaker guarding the given model, or the
// caller's default model when name is empty.
func (r *ResilientCaller) Breaker(model string) *resilience.CircuitBreaker {
	if model == "" {
		model = r.model
	}
	return r.registry.GetOrCreate("llm_" + model)
}

// Chat performs a chat completion with retry and breaker protection.
// Each attempt runs under the breaker's per-call timeout; a call that
// exhausts its retries on timeouts surfaces as a CircuitTimeoutError.
func (r *ResilientCaller) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.ChatResponse, error) {
	cb := r.Breaker(opts.Model)

	if !cb.Allow() {
		r.logger.Warn(ctx, "llm call rejected by open circuit", map[string]interface{}{
			"circuit": cb.Name(),
		})
		return nil, &resilience.CircuitOpenError{Name: cb.Name()}
	}

	timeout := cb.Config().Timeout

	var response *domain.ChatResponse
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		attemptCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		var chatErr error
		response, chatErr = r.client.Chat(attemptCtx, messages, opts)
		return chatErr
	})

	if err != nil {
		// A deadline hit while the caller's context is still alive is
		// the breaker-enforced timeout, not a cancellation.
		if timeout > 0 && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &resilience.CircuitTimeoutError{Name: cb.Name(), Timeout: timeout}
		}
		cb.RecordFailure()
		r.logger.Error(ctx, "llm call failed after retries", err, map[string]interface{}{
			"circuit": cb.Name(),
		})
		return nil, err
	}

	cb.RecordSuccess()
	return response, nil
}
