package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func testPolicy(sleeps *[]time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(15 * time.Second)
		},
		Sleep: func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		},
	}
}

func TestRetryPolicy_SucceedsAfterRateLimits(t *testing.T) {
	var sleeps []time.Duration
	policy := testPolicy(&sleeps)

	calls := 0
	err := policy.Do(context.Background(), "contextualize", func(context.Context) error {
		calls++
		if calls <= 2 {
			return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3", calls)
	}
	if len(sleeps) != 2 {
		t.Errorf("got %d backoff sleeps, want 2", len(sleeps))
	}
}

func TestRetryPolicy_ExhaustsRetries(t *testing.T) {
	var sleeps []time.Duration
	policy := testPolicy(&sleeps)

	calls := 0
	err := policy.Do(context.Background(), "contextualize", func(context.Context) error {
		calls++
		return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	})

	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Do() error = %v, want ErrRateLimited", err)
	}
	if calls != 4 {
		// Initial attempt plus MaxRetries.
		t.Errorf("got %d calls, want 4", calls)
	}
	if len(sleeps) != 3 {
		t.Errorf("got %d backoff sleeps, want 3", len(sleeps))
	}
}

func TestRetryPolicy_NonRetryableFailsFast(t *testing.T) {
	var sleeps []time.Duration
	policy := testPolicy(&sleeps)

	fatal := fmt.Errorf("%w: invalid api key", ErrFatalAPI)
	calls := 0
	err := policy.Do(context.Background(), "generate", func(context.Context) error {
		calls++
		return fatal
	})

	if !errors.Is(err, ErrFatalAPI) {
		t.Fatalf("Do() error = %v, want ErrFatalAPI", err)
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("got %d sleeps, want 0", len(sleeps))
	}
}

func TestRetryPolicy_SleepCancellation(t *testing.T) {
	policy := &RetryPolicy{
		MaxRetries: 3,
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(15 * time.Second)
		},
		Sleep: func(ctx context.Context, _ time.Duration) error {
			return context.Canceled
		},
	}

	err := policy.Do(context.Background(), "embed", func(context.Context) error {
		return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}
