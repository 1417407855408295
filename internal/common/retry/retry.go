// Package retry is the single home of backoff timing for the pipeline.
// Callers wrap external calls in a Policy instead of re-implementing
// delay logic.
package retry

import (
	"context"
	"time"

	"regsearch/internal/common/errors"
	"regsearch/internal/common/logger"
	"regsearch/internal/common/metrics"
)

const (
	// DefaultMaxAttempts is the retry budget for rate-limited operations.
	DefaultMaxAttempts = 3

	baseBackoff = 5 * time.Second
	maxBackoff  = 60 * time.Second
)

// Policy executes operations with exponential backoff on rate-limit
// failures. The zero value is not usable; construct with New.
type Policy struct {
	maxAttempts int
	logger      logger.Logger

	// sleep is swapped out by tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts overrides the default retry budget.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithSleep replaces the wait primitive. Tests use this to observe
// backoff durations without blocking.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) { p.sleep = sleep }
}

func New(log logger.Logger, opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: DefaultMaxAttempts,
		logger:      log,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backoff returns the wait before retry number attempt (1-based count of
// rate-limit failures so far): min(60s, 5s * 2^attempt).
func Backoff(attempt int) time.Duration {
	d := baseBackoff * time.Duration(1<<uint(attempt))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Do executes op, retrying on rate-limit-classified errors with
// exponential backoff. Non-rate-limit errors propagate immediately.
// After the budget is spent it returns a MAX_RETRIES_EXCEEDED error.
func (p *Policy) Do(ctx context.Context, operation string, op func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !errors.IsRateLimit(lastErr) {
			return lastErr
		}

		if attempt == p.maxAttempts {
			break
		}

		wait := Backoff(attempt)
		metrics.RetriesTotal.WithLabelValues(operation).Inc()
		p.logger.Warn("rate limited, backing off", map[string]interface{}{
			"operation":   operation,
			"attempt":     attempt,
			"maxAttempts": p.maxAttempts,
			"wait":        wait.String(),
		})
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}

	p.logger.Error("retry budget exhausted", map[string]interface{}{
		"operation": operation,
		"attempts":  p.maxAttempts,
		"lastError": lastErr.Error(),
	})
	return errors.NewMaxRetriesExceededError(p.maxAttempts, lastErr)
}

// DoResult is Do for operations that produce a value.
func DoResult[T any](ctx context.Context, p *Policy, operation string, op func() (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, operation, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}

// Delay waits a fixed interval, honoring context cancellation. The
// administrative-guidance sequence uses it to proactively space requests,
// independent of reactive retry.
func (p *Policy) Delay(ctx context.Context, d time.Duration) error {
	return p.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
