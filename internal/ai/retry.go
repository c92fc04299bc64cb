package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RateLimitExceededError is returned once the attempt budget is spent while
// the service keeps reporting rate limits.
type RateLimitExceededError struct {
	Attempts int
	Err      error
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RateLimitExceededError) Unwrap() error { return e.Err }

// Retrying retries rate-limited calls of the wrapped Generator with
// exponential backoff starting at the cooldown. Other errors pass through.
type Retrying struct {
	next        Generator
	cooldown    time.Duration
	maxAttempts int
}

// NewRetrying wraps next. maxAttempts counts the first call.
func NewRetrying(next Generator, cooldown time.Duration, maxAttempts int) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if cooldown <= 0 {
		cooldown = 20 * time.Second
	}
	return &Retrying{next: next, cooldown: cooldown, maxAttempts: maxAttempts}
}

func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	attempts := 0
	b := retry.WithMaxRetries(uint64(r.maxAttempts-1), retry.NewExponential(r.cooldown))
	out, err := retry.DoValue(ctx, b, func(ctx context.Context) (string, error) {
		attempts++
		s, err := r.next.Generate(ctx, prompt)
		if err != nil && IsRateLimited(err) {
			slog.Warn("ai: rate limited, backing off", "attempt", attempts, "max_attempts", r.maxAttempts)
			return "", retry.RetryableError(err)
		}
		return s, err
	})
	if err != nil {
		if IsRateLimited(err) {
			return "", &RateLimitExceededError{Attempts: attempts, Err: err}
		}
		return "", err
	}
	return out, nil
}
