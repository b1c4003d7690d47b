package upstream

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryDelay is the fixed pause before the single retry
const RetryDelay = 2 * time.Second

// Retrier applies the upstream retry policy: one retry after a fixed delay on
// transient failures, nothing else. A single Retrier wraps every outbound
// call so the policy cannot drift between call sites.
type Retrier struct {
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

// RetrierOption configures a Retrier
type RetrierOption func(*Retrier)

// WithDelay overrides the retry delay
func WithDelay(d time.Duration) RetrierOption {
	return func(r *Retrier) { r.delay = d }
}

// WithSleeper injects the sleep function, so tests run without real waits
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) RetrierOption {
	return func(r *Retrier) { r.sleep = sleep }
}

// WithRetryLogger attaches a logger for retry warnings
func WithRetryLogger(logger *zap.Logger) RetrierOption {
	return func(r *Retrier) { r.logger = logger }
}

// NewRetrier creates a Retrier with the standard policy
func NewRetrier(opts ...RetrierOption) *Retrier {
	r := &Retrier{
		delay: RetryDelay,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn, retrying exactly once after the fixed delay when the first
// failure is transient. A second transient failure escalates to
// ErrUpstreamUnavailable. Validation and auth errors propagate immediately
// with their payload intact.
func Do[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := fn(ctx)
	if err == nil || !IsTransient(err) {
		return result, err
	}

	if r.logger != nil {
		r.logger.Warn("upstream_call_failed_retrying",
			zap.Error(err),
			zap.Duration("retry_delay", r.delay),
		)
	}

	if sleepErr := r.sleep(ctx, r.delay); sleepErr != nil {
		var zero T
		return zero, sleepErr
	}

	result, err = fn(ctx)
	if err == nil {
		return result, nil
	}
	if !IsTransient(err) {
		return result, err
	}

	var zero T
	return zero, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
