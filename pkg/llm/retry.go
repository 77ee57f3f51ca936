package llm

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures the gateway's backoff loop, mirroring the
// pkg/httpclient.Client knobs of the teacher (WithMaxRetries,
// WithBaseDelay, WithMaxDelay) but expressed as the spec's own
// retry_multiplier/retry_min_wait/retry_max_wait fields.
type RetryConfig struct {
	NumRetries      int
	Multiplier      float64
	MinWait         time.Duration
	MaxWait         time.Duration
	Listener        RetryListener
	HonorRetryAfter bool // spec §9: RECOMMENDS honoring Retry-After; default true
}

// DefaultRetryConfig matches spec §4.1's defaults (N=5) and the teacher's
// backoff shape.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		NumRetries:      5,
		Multiplier:      1.0,
		MinWait:         1 * time.Second,
		MaxWait:         30 * time.Second,
		HonorRetryAfter: true,
	}
}

// retryAfterError is implemented by provider errors that carry a
// server-supplied Retry-After duration, so calculateDelay can prefer it
// over computed backoff - the same precedence teacher's
// pkg/httpclient.Client.calculateDelay gives RateLimitInfo.RetryAfter.
type retryAfterError interface {
	RetryAfter() time.Duration
}

// calculateDelay computes the wait before attempt N+1, honoring a
// provider-supplied Retry-After when present and otherwise using
// exponential backoff with jitter, clamped to [MinWait, MaxWait].
// wait = clamp(multiplier * 2^attempt, min, max), per spec §4.1.
func (c RetryConfig) calculateDelay(attempt int, err error) time.Duration {
	if c.HonorRetryAfter {
		if rae, ok := err.(retryAfterError); ok {
			if d := rae.RetryAfter(); d > 0 {
				return clampDuration(d, c.MinWait, c.MaxWait)
			}
		}
	}

	base := time.Duration(c.Multiplier * math.Pow(2, float64(attempt)) * float64(time.Second))
	jitter := time.Duration(rand.Float64() * float64(base) * 0.1)
	return clampDuration(base+jitter, c.MinWait, c.MaxWait)
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// withRetry wraps attempt in the gateway's backoff loop. attempt performs
// exactly one try of the underlying call.
func withRetry[T any](ctx context.Context, cfg RetryConfig, attemptFn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	maxAttempts := cfg.NumRetries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := attemptFn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetriable(err) {
			return zero, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		if cfg.Listener != nil {
			cfg.Listener(attempt+1, maxAttempts)
		}

		delay := cfg.calculateDelay(attempt, err)
		slog.Debug("llm: retrying after error", "attempt", attempt+1, "max", maxAttempts, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
