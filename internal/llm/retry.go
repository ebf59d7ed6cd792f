package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy retries operations that fail with ErrRateLimited. Other errors
// return immediately. Sleep is injectable for tests.
type RetryPolicy struct {
	MaxRetries int
	NewBackOff func() backoff.BackOff
	Sleep      func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy waits roughly 15 to 20 seconds between attempts, which
// is long enough for per-minute rate windows to roll over.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 15 * time.Second
			b.RandomizationFactor = 0.2
			b.Multiplier = 1.1
			b.MaxElapsedTime = 0
			return b
		},
		Sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op, retrying up to MaxRetries times on rate limiting. The error of
// the final attempt is returned when retries are exhausted.
func (p *RetryPolicy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	bo := p.NewBackOff()
	bo.Reset()

	var err error
	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return err
		}
		if attempt >= p.MaxRetries {
			return fmt.Errorf("%s: retries exhausted after %d attempts: %w", name, attempt+1, err)
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("%s: backoff stopped: %w", name, err)
		}

		slog.Warn("rate limited, backing off", "operation", name, "attempt", attempt+1, "wait", wait)
		if sleepErr := p.Sleep(ctx, wait); sleepErr != nil {
			return fmt.Errorf("%s: %w", name, sleepErr)
		}
	}
}
