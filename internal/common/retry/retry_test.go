// internal/common/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pipeerrors "regsearch/internal/common/errors"
	"regsearch/internal/common/logger"
)

func recordingSleep(waits *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 60 * time.Second}, // capped
		{10, 60 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDo_SucceedsAfterRateLimits(t *testing.T) {
	var waits []time.Duration
	policy := New(logger.NewTestLogger(t), WithSleep(recordingSleep(&waits)))

	calls := 0
	var value string
	err := policy.Do(context.Background(), "test-op", func() error {
		calls++
		if calls < 3 {
			return pipeerrors.NewRateLimitError("throttled")
		}
		value = "success"
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "success", value)
	assert.Equal(t, 3, calls)

	// Two rate-limit failures: waits of 5s*2^1 and 5s*2^2, each under the
	// 60s cap.
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, waits)
	var total time.Duration
	for _, w := range waits {
		total += w
		assert.LessOrEqual(t, w, 60*time.Second)
	}
	assert.GreaterOrEqual(t, total, 30*time.Second)
}

func TestDo_NonRateLimitPropagatesImmediately(t *testing.T) {
	var waits []time.Duration
	policy := New(logger.NewTestLogger(t), WithSleep(recordingSleep(&waits)))

	boom := pipeerrors.NewAuthenticationError("bad key")
	calls := 0
	err := policy.Do(context.Background(), "test-op", func() error {
		calls++
		return boom
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestDo_MaxRetriesExceeded(t *testing.T) {
	var waits []time.Duration
	policy := New(logger.NewTestLogger(t), WithSleep(recordingSleep(&waits)))

	calls := 0
	err := policy.Do(context.Background(), "test-op", func() error {
		calls++
		return pipeerrors.NewRateLimitError("throttled")
	})

	assert.Error(t, err)
	assert.True(t, pipeerrors.IsCode(err, pipeerrors.ErrCodeMaxRetriesExceeded))
	assert.Equal(t, DefaultMaxAttempts, calls)
	// No wait after the final failed attempt.
	assert.Len(t, waits, DefaultMaxAttempts-1)
}

func TestDo_ClassifiesBySignature(t *testing.T) {
	var waits []time.Duration
	policy := New(logger.NewTestLogger(t), WithMaxAttempts(2), WithSleep(recordingSleep(&waits)))

	calls := 0
	err := policy.Do(context.Background(), "test-op", func() error {
		calls++
		if calls == 1 {
			// Plain error carrying a known throttling signature, not a
			// StandardError.
			return errors.New("agent responded: 429 Too Many Requests")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, waits, 1)
}

func TestDoResult(t *testing.T) {
	var waits []time.Duration
	policy := New(logger.NewNoOpLogger(), WithSleep(recordingSleep(&waits)))

	calls := 0
	result, err := DoResult(context.Background(), policy, "test-op", func() (int, error) {
		calls++
		if calls == 1 {
			return 0, pipeerrors.NewRateLimitError("throttled")
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestDelay_HonorsContext(t *testing.T) {
	policy := New(logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.Delay(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
