package workflow

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/strandkit/strand/pkg/models"
)

// Backoff strategies accepted in a retry policy.
const (
	BackoffNone        = "none"
	BackoffConstant    = "constant"
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

// IsRetryableError classifies whether a node failure is worth retrying.
// Deterministic failures (evaluation, validation, exceeded loop bounds) are
// not; cancellation means the run is shutting down. Adapter and timeout
// failures are retryable, as are plain network errors.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var engineErr *models.EngineError
	if errors.As(err, &engineErr) {
		switch engineErr.Code {
		case models.ErrCodeValidation, models.ErrCodeEvaluation,
			models.ErrCodeLoopBound, models.ErrCodeCancelled, models.ErrCodeConflict:
			return false
		case models.ErrCodeAdapter, models.ErrCodeTimeout:
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Conservative default: retryable, the policy bounds the attempts.
	return true
}

// ComputeBackoff calculates the delay before the next retry attempt.
// Supports none, constant, linear and exponential backoff with an optional
// max_delay cap. attempt is zero-based: the delay before attempt n+1.
func ComputeBackoff(policy *models.RetryPolicy, attempt int) time.Duration {
	if policy == nil || policy.Delay == "" {
		return 0
	}

	base, err := time.ParseDuration(policy.Delay)
	if err != nil {
		return 0
	}

	var delay time.Duration

	switch policy.Backoff {
	case BackoffExponential:
		multiplier := time.Duration(1)
		for range attempt {
			multiplier *= 2
		}

		delay = base * multiplier
	case BackoffLinear:
		delay = base * time.Duration(attempt+1)
	case BackoffConstant:
		delay = base
	case BackoffNone:
		return 0
	default:
		delay = base
	}

	if policy.MaxDelay != "" {
		maxDelay, parseErr := time.ParseDuration(policy.MaxDelay)
		if parseErr == nil && delay > maxDelay {
			delay = maxDelay
		}
	}

	return delay
}

// WaitForBackoff sleeps for the computed backoff or returns early when the
// context is cancelled.
func WaitForBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
