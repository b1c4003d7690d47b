package upstream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(recorded *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	r := NewRetrier(WithSleeper(noSleep(&sleeps)))

	calls := 0
	got, err := Do(context.Background(), r, func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls, want ok after 1", got, calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("no sleep expected on success, got %v", sleeps)
	}
}

func TestDoRetriesOnceOnTransientFailure(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	r := NewRetrier(WithSleeper(noSleep(&sleeps)))

	calls := 0
	got, err := Do(context.Background(), r, func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection refused")
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "recovered" || calls != 2 {
		t.Errorf("got %q after %d calls, want recovered after 2", got, calls)
	}
	if len(sleeps) != 1 || sleeps[0] != RetryDelay {
		t.Errorf("expected one %v pause, got %v", RetryDelay, sleeps)
	}
}

func TestDoEscalatesAfterSecondTransientFailure(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	r := NewRetrier(WithSleeper(noSleep(&sleeps)))

	calls := 0
	_, err := Do(context.Background(), r, func(_ context.Context) (string, error) {
		calls++
		return "", &APIError{StatusCode: 503, Message: "overloaded"}
	})
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{name: "bad request", status: 400},
		{name: "unauthorized", status: 401},
		{name: "forbidden", status: 403},
		{name: "not found", status: 404},
		{name: "rate limited", status: 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var sleeps []time.Duration
			r := NewRetrier(WithSleeper(noSleep(&sleeps)))

			calls := 0
			_, err := Do(context.Background(), r, func(_ context.Context) (string, error) {
				calls++
				return "", &APIError{StatusCode: tt.status, Message: "nope"}
			})
			if calls != 1 {
				t.Errorf("expected a single attempt, got %d", calls)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Errorf("expected APIError %d preserved, got %v", tt.status, err)
			}
		})
	}
}

func TestDoDoesNotRetryCancelledContext(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	r := NewRetrier(WithSleeper(noSleep(&sleeps)))

	calls := 0
	_, err := Do(context.Background(), r, func(_ context.Context) (string, error) {
		calls++
		return "", context.Canceled
	})
	if calls != 1 {
		t.Errorf("cancellation must not be retried, got %d attempts", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transport error", err: errors.New("connection reset"), want: true},
		{name: "500", err: &APIError{StatusCode: 500}, want: true},
		{name: "503", err: &APIError{StatusCode: 503}, want: true},
		{name: "400", err: &APIError{StatusCode: 400}, want: false},
		{name: "429", err: &APIError{StatusCode: 429}, want: false},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
