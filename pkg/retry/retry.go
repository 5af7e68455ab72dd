// Package retry provides retry with exponential backoff for transport calls.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/bardlex/coinrpc/pkg/errors"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool

	// ShouldRetry classifies an error; nil means errors.IsRetryable.
	ShouldRetry func(error) bool
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// NetworkConfig returns retry configuration for generic network operations
// such as broker writes.
func NetworkConfig() *Config {
	return &Config{
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  1.5,
		Jitter:      true,
	}
}

// TransportConfig returns retry configuration for daemon RPC round trips.
// Only transport failures are retried; anything the daemon answered is final.
func TransportConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		ShouldRetry: func(err error) bool {
			return errors.IsType(err, errors.ErrorTypeTransport) && errors.IsRetryable(err)
		},
	}
}

// Disabled returns a configuration that runs the function exactly once.
func Disabled() *Config {
	return &Config{MaxAttempts: 1}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// Do executes a function with retry logic
func Do(ctx context.Context, config *Config, fn RetryableFunc) error {
	_, err := DoWithResult(ctx, config, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes a function with retry logic and returns a result
func DoWithResult[T any](ctx context.Context, config *Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if config == nil {
		config = DefaultConfig()
	}
	attempts := max(config.MaxAttempts, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err

		if !config.shouldRetry(err) {
			return zero, err
		}

		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(config.calculateDelay(attempt)):
		}
	}

	if attempts == 1 {
		return zero, lastErr
	}

	return zero, errors.Wrap(lastErr, errors.ErrorTypeInternal, "retry",
		"operation failed after maximum retry attempts").
		WithContext("max_attempts", attempts)
}

func (c *Config) shouldRetry(err error) bool {
	if c.ShouldRetry != nil {
		return c.ShouldRetry(err)
	}
	return errors.IsRetryable(err)
}

// calculateDelay calculates the delay for the given attempt using exponential backoff
func (c *Config) calculateDelay(attempt int) time.Duration {
	delay := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt))
	delay = min(delay, float64(c.MaxDelay))

	// up to 10% jitter
	if c.Jitter {
		delay += delay * 0.1 * rand.Float64()
	}

	return time.Duration(delay)
}
