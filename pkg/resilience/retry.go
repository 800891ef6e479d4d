package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mkohler/newsroom/pkg/observability"
)

// Non-retryable quota and billing failures. These indicate an account
// problem that no amount of waiting will resolve, so they are checked
// before the retryable keywords.
var nonRetryableKeywords = []string{
	"insufficient_quota",
	"billing",
	"quota",
	"exceeded your current quota",
	"account",
}

// Transient provider failures worth retrying.
var retryableKeywords = []string{
	"rate_limit",
	"rate limit",
	"too many requests",
	"service_unavailable",
	"service unavailable",
	"temporarily unavailable",
	"api_error",
}

// IsRetryable reports whether an error is worth retrying. Quota and
// billing errors are never retryable even when their message also
// matches a retryable keyword. Timeouts and network-level failures are
// retryable by type.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	for _, keyword := range nonRetryableKeywords {
		if strings.Contains(msg, keyword) {
			return false
		}
	}

	for _, keyword := range retryableKeywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// RetryConfig configures exponential backoff behavior.
type RetryConfig struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          float64
}

// DefaultRetryConfig returns the standard backoff configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		BaseDelay:       2 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          0.1,
	}
}

// RetryPolicy retries an operation with exponential backoff and jitter.
// Only errors classified retryable by IsRetryable are attempted again.
type RetryPolicy struct {
	config RetryConfig
	logger *observability.StructuredLogger

	// rngMu guards rng: one policy is shared by every concurrent
	// workflow and math/rand.Rand is not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRetryPolicy creates a retry policy, clamping the configuration to
// sane bounds: at least one attempt, a base delay of at least 100ms, a
// max delay no smaller than the base delay, and jitter within [0, 1].
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BaseDelay < 100*time.Millisecond {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}
	if config.Jitter < 0 {
		config.Jitter = 0
	}
	if config.Jitter > 1 {
		config.Jitter = 1
	}
	if config.ExponentialBase <= 0 {
		config.ExponentialBase = 2.0
	}

	return &RetryPolicy{
		config: config,
		logger: observability.NewStructuredLogger("retry"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Config returns the clamped configuration in effect.
func (p *RetryPolicy) Config() RetryConfig {
	return p.config
}

// Delay computes the backoff before the next attempt. The attempt
// number is 1-indexed: after the first failed attempt the delay is
// base * expBase^1 capped at the max, then jitter is applied as a
// uniform fraction in [-jitter, +jitter] of the capped delay.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.config.BaseDelay) * math.Pow(p.config.ExponentialBase, float64(attempt))
	if delay > float64(p.config.MaxDelay) {
		delay = float64(p.config.MaxDelay)
	}

	if p.config.Jitter > 0 {
		p.rngMu.Lock()
		draw := p.rng.Float64()
		p.rngMu.Unlock()
		jitterRange := delay * p.config.Jitter
		delay += (draw*2 - 1) * jitterRange
	}

	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// Do runs op, retrying retryable failures up to MaxAttempts total
// attempts. A non-retryable error or context cancellation returns
// immediately; the final attempt's error is returned when the budget
// is exhausted.
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			p.logger.Warn(ctx, "non-retryable error, giving up", map[string]interface{}{
				"attempt": attempt,
				"error":   lastErr.Error(),
			})
			return lastErr
		}

		if attempt == p.config.MaxAttempts {
			break
		}

		delay := p.Delay(attempt)
		p.logger.Warn(ctx, "retryable error, backing off", map[string]interface{}{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"error":    lastErr.Error(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
