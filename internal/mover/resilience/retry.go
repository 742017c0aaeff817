// Package resilience adapts the retry/backoff pattern used across the
// mover pipeline for the XC API: exponential backoff with jitter, a
// pluggable retryable-error check, and context-aware sleeps.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy configures exponential-backoff retry behaviour.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// Jitter adds up to 10% randomness to each delay.
	Jitter bool

	// ErrorChecker decides which errors are retryable. If nil, every
	// non-nil error is treated as retryable.
	ErrorChecker RetryableErrorChecker

	// Logger receives retry/backoff events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records attempt/backoff counts, if set.
	Metrics *Metrics

	// OperationName labels metrics and log lines for this retry loop.
	OperationName string
}

// RetryableErrorChecker decides whether an error should trigger a retry.
type RetryableErrorChecker interface {
	IsRetryable(err error) bool
}

// DefaultRetryPolicy mirrors the XC API client's retry settings: 3
// retries, 500ms base delay (matching the Python client's
// backoff_factor=0.5), capped at 8 seconds, doubling each attempt, with
// jitter.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// WithRetryFunc executes operation with retry logic according to policy,
// returning the operation's result on success or its last error once
// retries are exhausted.
func WithRetryFunc[T any](ctx context.Context, policy *RetryPolicy, operation func() (T, error)) (T, error) {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opName := policy.OperationName
	if opName == "" {
		opName = "unknown"
	}
	start := time.Now()

	var lastResult T
	var lastErr error
	delay := policy.BaseDelay
	attempts := 0

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		attempts++
		attemptStart := time.Now()
		result, err := operation()
		attemptDuration := time.Since(attemptStart).Seconds()

		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry",
					"operation", opName, "attempt", attempt+1)
			}
			if policy.Metrics != nil {
				policy.Metrics.RecordAttempt(opName, "success", "none", attemptDuration)
				policy.Metrics.RecordFinalAttempt(opName, "success", attempts)
			}
			return result, nil
		}

		lastResult = result
		lastErr = err

		if !shouldRetry(err, policy.ErrorChecker) {
			logger.Debug("error is non-retryable, stopping retry loop",
				"operation", opName, "error", err, "attempt", attempt+1)
			if policy.Metrics != nil {
				policy.Metrics.RecordAttempt(opName, "failure", classifyError(err), attemptDuration)
				policy.Metrics.RecordFinalAttempt(opName, "failure", attempts)
			}
			return lastResult, lastErr
		}

		if policy.Metrics != nil {
			policy.Metrics.RecordAttempt(opName, "failure", classifyError(err), attemptDuration)
		}

		if attempt >= policy.MaxRetries {
			logger.Error("operation failed after all retries",
				"operation", opName, "max_retries", policy.MaxRetries, "error", lastErr)
			if policy.Metrics != nil {
				policy.Metrics.RecordFinalAttempt(opName, "failure", attempts)
			}
			break
		}

		logger.Warn("operation failed, retrying",
			"operation", opName, "attempt", attempt+1, "delay", delay, "error", err)

		if policy.Metrics != nil {
			policy.Metrics.RecordBackoff(opName, delay.Seconds())
		}

		if !waitWithContext(ctx, delay) {
			logger.Debug("context cancelled during retry delay", "operation", opName)
			if policy.Metrics != nil {
				policy.Metrics.RecordAttempt(opName, "cancelled", classifyError(ctx.Err()), time.Since(start).Seconds())
				policy.Metrics.RecordFinalAttempt(opName, "cancelled", attempts)
			}
			var zero T
			return zero, ctx.Err()
		}

		delay = calculateNextDelay(delay, policy)
	}

	return lastResult, fmt.Errorf("operation %q failed after %d attempts: %w", opName, policy.MaxRetries+1, lastErr)
}

func shouldRetry(err error, checker RetryableErrorChecker) bool {
	if err == nil {
		return false
	}
	if checker != nil {
		return checker.IsRetryable(err)
	}
	return true
}

func waitWithContext(ctx context.Context, delay time.Duration) bool {
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func calculateNextDelay(current time.Duration, policy *RetryPolicy) time.Duration {
	next := time.Duration(float64(current) * policy.Multiplier)
	if next > policy.MaxDelay {
		next = policy.MaxDelay
	}
	if policy.Jitter {
		next += time.Duration(float64(next) * 0.1 * rand.Float64())
	}
	return next
}
