package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/twinmap/internal/retry"
	"github.com/agentstation/twinmap/pkg/errors"
)

func fastConfig(attempts int) retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestDoTimeoutUsesEveryAttempt(t *testing.T) {
	for _, attempts := range []int{1, 3, 5} {
		calls := 0
		err := retry.Do(context.Background(), fastConfig(attempts), func(context.Context) error {
			calls++
			return errors.NewFetchError(errors.FetchTimeout, "graph", "deadline", nil)
		})

		assert.Equal(t, attempts, calls)
		require.Error(t, err)
		assert.True(t, errors.IsSourceUnavailable(err))
		assert.True(t, errors.IsTimeout(err))

		var retryErr *errors.RetryError
		require.ErrorAs(t, err, &retryErr)
		assert.Equal(t, attempts, retryErr.Attempts)
	}
}

func TestDoMalformedIsNotRetried(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return errors.NewFetchError(errors.FetchMalformedResponse, "graph", "not json", nil)
	})

	assert.Equal(t, 1, calls)
	assert.True(t, errors.IsMalformed(err))
	assert.False(t, errors.IsSourceUnavailable(err))
	var retryErr *errors.RetryError
	assert.False(t, errors.As(err, &retryErr))
}

func TestDoRecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.NewFetchError(errors.FetchNetwork, "article", "connection reset", nil)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoRetriesRateLimited(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(2), func(context.Context) error {
		calls++
		return &errors.FetchError{Kind: errors.FetchRateLimited, StatusCode: 429, RetryAfter: time.Millisecond}
	})
	assert.Equal(t, 2, calls)
	assert.True(t, errors.IsRateLimited(err))
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	calls := 0
	err := retry.Do(ctx, cfg, func(context.Context) error {
		calls++
		cancel()
		return errors.NewFetchError(errors.FetchNetwork, "graph", "reset", nil)
	})

	assert.Equal(t, 1, calls)
	assert.True(t, errors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoPlainErrorsAreNotRetried(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)
}

func TestDelay(t *testing.T) {
	cfg := retry.DefaultConfig()

	assert.Equal(t, 500*time.Millisecond, cfg.Delay(1, 0))
	assert.Equal(t, time.Second, cfg.Delay(2, 0))
	assert.Equal(t, 2*time.Second, cfg.Delay(3, 0))
	assert.Equal(t, 8*time.Second, cfg.Delay(10, 0))

	// Retry-After is a lower bound, still capped.
	assert.Equal(t, 3*time.Second, cfg.Delay(1, 3*time.Second))
	assert.Equal(t, 8*time.Second, cfg.Delay(1, time.Minute))
	assert.Equal(t, time.Second, cfg.Delay(2, 10*time.Millisecond))
}

func TestDefaultConfig(t *testing.T) {
	cfg := retry.DefaultConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 8*time.Second, cfg.MaxDelay)
	assert.InDelta(t, 2.0, cfg.Multiplier, 0.0001)
}
