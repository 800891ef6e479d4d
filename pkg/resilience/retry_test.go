package resilience

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkohler/newsroom/pkg/observability"
)

// TestIsRetryable tests error classification by message and type
func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"rate limit underscore", errors.New("rate_limit reached"), true},
		{"rate limit spaced", errors.New("Rate Limit hit, slow down"), true},
		{"too many requests", errors.New("429 Too Many Requests"), true},
		{"service unavailable underscore", errors.New("service_unavailable"), true},
		{"service unavailable spaced", errors.New("503 Service Unavailable"), true},
		{"temporarily unavailable", errors.New("backend temporarily unavailable"), true},
		{"api error", errors.New("api_error: upstream hiccup"), true},
		{"quota", errors.New("insufficient_quota for this request"), false},
		{"billing", errors.New("billing hard limit reached"), false},
		{"exceeded quota", errors.New("You exceeded your current quota"), false},
		{"account", errors.New("account suspended"), false},
		{"quota beats rate limit", errors.New("rate_limit: exceeded your current quota"), false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", errors.Join(errors.New("chat failed"), context.DeadlineExceeded), true},
		{"plain error", errors.New("invalid request payload"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

// TestNewRetryPolicyClamping tests configuration normalization
func TestNewRetryPolicyClamping(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxAttempts:     0,
		BaseDelay:       10 * time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		ExponentialBase: 0,
		Jitter:          1.5,
	})

	cfg := p.Config()
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.ExponentialBase)
	assert.Equal(t, 1.0, cfg.Jitter)

	p = NewRetryPolicy(RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute, ExponentialBase: 2, Jitter: -0.2})
	assert.Equal(t, 0.0, p.Config().Jitter)
}

// TestRetryPolicyDelaySequence tests the exponential backoff schedule
// without jitter
func TestRetryPolicyDelaySequence(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxAttempts:     10,
		BaseDelay:       2 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          0,
	})

	want := []time.Duration{
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, p.Delay(i+1), "attempt %d", i+1)
	}
}

// TestRetryPolicyDelayJitterBounds tests that jitter stays within the
// configured fraction of the capped delay
func TestRetryPolicyDelayJitterBounds(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxAttempts:     5,
		BaseDelay:       2 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          0.1,
	})

	for i := 0; i < 100; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, 3600*time.Millisecond)
		assert.LessOrEqual(t, d, 4400*time.Millisecond)
	}
}

// TestRetryPolicyDelayConcurrent tests that a shared policy computes
// jittered delays safely from many goroutines at once
func TestRetryPolicyDelayConcurrent(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxAttempts:     5,
		BaseDelay:       2 * time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          0.1,
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				d := p.Delay(1)
				assert.GreaterOrEqual(t, d, 3600*time.Millisecond)
				assert.LessOrEqual(t, d, 4400*time.Millisecond)
			}
		}()
	}
	wg.Wait()
}

// TestRetryPolicyDo tests the retry loop behavior
func TestRetryPolicyDo(t *testing.T) {
	observability.SetLogOutput(io.Discard)

	t.Run("succeeds first attempt", func(t *testing.T) {
		p := NewRetryPolicy(RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Second, ExponentialBase: 2})
		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		p := NewRetryPolicy(RetryConfig{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, MaxDelay: 100 * time.Millisecond, ExponentialBase: 2})
		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("rate_limit")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable stops immediately", func(t *testing.T) {
		p := NewRetryPolicy(RetryConfig{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 100 * time.Millisecond, ExponentialBase: 2})
		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("insufficient_quota")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient_quota")
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts and returns last error", func(t *testing.T) {
		p := NewRetryPolicy(RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 100 * time.Millisecond, ExponentialBase: 2})
		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("too many requests")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("context cancellation aborts backoff", func(t *testing.T) {
		p := NewRetryPolicy(RetryConfig{MaxAttempts: 5, BaseDelay: 10 * time.Second, MaxDelay: 10 * time.Second, ExponentialBase: 2})
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		err := p.Do(ctx, func(ctx context.Context) error {
			return errors.New("service unavailable")
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}
