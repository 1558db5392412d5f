package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig controls how a flow store call is repeated after a transient
// failure. Only idempotent calls (loads, saves under a known id) should be
// given more than one attempt; see Once.
type RetryConfig struct {
	// MaxAttempts counts the first call. Values below 1 mean 1.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts. Zero means no cap.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait after each attempt.
	BackoffFactor float64

	// Jitter spreads each wait by up to this fraction either way (0.0-1.0),
	// so editors that failed together do not retry together.
	Jitter float64

	// RetryableFunc replaces IsRetryable when set.
	RetryableFunc func(error) bool

	// OnRetry is called before sleeping ahead of attempt+1.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetry suits interactive save/load calls: a user is waiting.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// Once returns a copy of cfg limited to a single attempt. Use it for
// calls that are not safe to repeat, such as creating a flow.
func (cfg RetryConfig) Once() RetryConfig {
	cfg.MaxAttempts = 1
	return cfg
}

func (cfg RetryConfig) attempts() int {
	return max(cfg.MaxAttempts, 1)
}

func (cfg RetryConfig) retryable(err error) bool {
	if cfg.RetryableFunc != nil {
		return cfg.RetryableFunc(err)
	}
	return IsRetryable(err)
}

// next grows the wait for the following attempt.
func (cfg RetryConfig) next(wait time.Duration) time.Duration {
	wait = time.Duration(float64(wait) * cfg.BackoffFactor)
	if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
		wait = cfg.MaxBackoff
	}
	return wait
}

// RetryResult is the outcome of WithRetryContext.
type RetryResult[T any] struct {
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// WithRetryContext calls fn until it succeeds, fails with an error that is
// not retryable, runs out of attempts, or ctx ends. Failures are returned
// as *CategorizedError wrapping the last cause, so callers can still match
// the transport's sentinels with errors.Is.
func WithRetryContext[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(context.Context) (T, error),
) RetryResult[T] {
	start := time.Now()
	fail := func(err error, cat Category, attempts int, reason string) RetryResult[T] {
		return RetryResult[T]{
			Err:      &CategorizedError{Err: err, Category: cat, Retries: attempts, Context: reason},
			Attempts: attempts,
			Duration: time.Since(start),
		}
	}

	limit := cfg.attempts()
	wait := cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= limit; attempt++ {
		if err := ctx.Err(); err != nil {
			return fail(err, CategoryPermanent, attempt-1, "context cancelled")
		}

		v, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{Value: v, Attempts: attempt, Duration: time.Since(start)}
		}
		lastErr = err

		if !cfg.retryable(err) {
			return fail(err, Categorize(err), attempt, "")
		}
		if attempt == limit {
			break
		}

		sleep := jittered(wait, cfg.Jitter)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, sleep)
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fail(ctx.Err(), CategoryPermanent, attempt, "context cancelled during backoff")
		case <-timer.C:
		}
		wait = cfg.next(wait)
	}

	return fail(lastErr, Categorize(lastErr), limit, "max retries exceeded")
}

// jittered returns base moved by up to base*jitter in either direction.
func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	return time.Duration(float64(base) * (1 + jitter*(rand.Float64()*2-1)))
}

// RetryOption adjusts a RetryConfig.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the total number of attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxAttempts = n }
}

// WithInitialBackoff sets the wait before the second attempt.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.InitialBackoff = d }
}

// WithMaxBackoff caps the wait between attempts.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxBackoff = d }
}

// WithJitter sets the jitter fraction.
func WithJitter(j float64) RetryOption {
	return func(cfg *RetryConfig) { cfg.Jitter = j }
}

// WithRetryableFunc overrides which errors are retried.
func WithRetryableFunc(fn func(error) bool) RetryOption {
	return func(cfg *RetryConfig) { cfg.RetryableFunc = fn }
}

// WithOnRetry registers a callback invoked before each backoff sleep.
func WithOnRetry(fn func(attempt int, err error, backoff time.Duration)) RetryOption {
	return func(cfg *RetryConfig) { cfg.OnRetry = fn }
}

// NewRetryConfig starts from DefaultRetry and applies opts.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
