// Package retry runs remote fetches with bounded exponential backoff.
// Only failures classified as retryable are attempted again.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/agentstation/twinmap/pkg/constants"
	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/logging"
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff and any server-requested delay.
	MaxDelay time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
	// IsRetryable decides whether an error is worth another attempt.
	IsRetryable func(error) bool
}

// DefaultConfig returns three attempts starting at 500ms, doubling, capped at 8s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  constants.MaxRetries,
		InitialDelay: constants.RetryBackoff,
		MaxDelay:     constants.MaxRetryBackoff,
		Multiplier:   constants.RetryMultiplier,
		IsRetryable:  errors.IsRetryable,
	}
}

// Delay returns the backoff before attempt+1, where attempt counts from 1.
// A server-requested delay acts as a lower bound.
func (c Config) Delay(attempt int, retryAfter time.Duration) time.Duration {
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1)))
	if delay > c.MaxDelay || delay < 0 {
		delay = c.MaxDelay
	}
	if retryAfter > delay {
		delay = min(retryAfter, c.MaxDelay)
	}
	return delay
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	if c.IsRetryable == nil {
		c.IsRetryable = def.IsRetryable
	}
	return c
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. Exhaustion returns *errors.RetryError wrapping the last
// failure. Context cancellation stops immediately.
func Do(ctx context.Context, config Config, fn func(ctx context.Context) error) error {
	config = config.withDefaults()
	log := logging.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrCanceled, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !config.IsRetryable(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		delay := config.Delay(attempt, retryAfter(err))
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", config.MaxAttempts).
			Dur("backoff", delay).
			Msg("Fetch failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", errors.ErrCanceled, ctx.Err())
		case <-timer.C:
		}
	}

	return &errors.RetryError{Attempts: config.MaxAttempts, Err: lastErr}
}

func retryAfter(err error) time.Duration {
	var fe *errors.FetchError
	if errors.As(err, &fe) {
		return fe.RetryAfter
	}
	return 0
}
