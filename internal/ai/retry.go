package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

// RetryPolicy bounds retries of rate-limited model calls.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first
	Base        time.Duration // first backoff; doubles per retry
	Jitter      time.Duration // +/- random spread per wait; zero disables
}

// DefaultRetryPolicy waits about 2s then 4s between three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Base: 2 * time.Second, Jitter: time.Second}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	if p.Jitter > 0 {
		b = retry.WithJitter(p.Jitter, b)
	}
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b)
}

// IsRateLimited reports whether err is a transient quota / throttling error from the provider.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit")
}

// withRetry runs fn, retrying only rate-limit errors. Any other error aborts at once.
// When retries run out the last rate-limit error is returned.
func withRetry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	return retry.DoValue(ctx, p.backoff(), func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if err != nil && IsRateLimited(err) {
			return v, retry.RetryableError(err)
		}
		return v, err
	})
}
