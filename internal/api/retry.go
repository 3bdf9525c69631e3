package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy bounds how often a data fetch is retried.
type RetryPolicy struct {
	MaxRetries   int           // 0 = no retries
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap for any single delay
	Multiplier   float64       // exponential backoff multiplier
	Jitter       bool          // add 0-20% random jitter
}

// DefaultRetryPolicy is used for idempotent GETs of data collections.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:   2,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// RetryExhaustedError is returned once every attempt failed.
type RetryExhaustedError struct {
	Err      error
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// the policy is exhausted.
func withRetry[T any](ctx context.Context, policy RetryPolicy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempt := 0
	for {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		if attempt >= policy.MaxRetries {
			if attempt == 0 {
				return zero, err
			}
			return zero, &RetryExhaustedError{Err: err, Attempts: attempt + 1}
		}

		delay := backoff(policy, attempt, err)
		log.Printf("⚠️  %s failed (attempt %d/%d), retrying in %s: %v", op, attempt+1, policy.MaxRetries+1, delay.Round(time.Millisecond), err)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: context cancelled during retry: %w", op, ctx.Err())
		case <-time.After(delay):
		}
		attempt++
	}
}

func backoff(policy RetryPolicy, attempt int, err error) time.Duration {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if ra := retryAfter(apiErr); ra > 0 {
			if ra > policy.MaxDelay {
				return policy.MaxDelay
			}
			return ra
		}
	}

	delay := float64(policy.InitialDelay) * math.Pow(policy.Multiplier, float64(attempt))
	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}
	if policy.Jitter {
		delay += rand.Float64() * 0.2 * delay
	}
	return time.Duration(delay)
}
