package httpclient

import (
	"context"
	"math/rand"
	"net/http"
	"time"
)

// ParseRetryAfter extracts a retry delay from a Retry-After header.
// Only the delay-seconds form is supported; malformed values yield zero.
func ParseRetryAfter(headers http.Header) time.Duration {
	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
			return seconds
		}
	}
	return 0
}

// Backoff returns the delay before the given retry attempt (0-based):
// base * 2^attempt plus up to 25% jitter, capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	d := base << uint(attempt)
	if d > max || d <= 0 {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// SleepWithContext waits for d or until ctx is done, whichever is first.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
