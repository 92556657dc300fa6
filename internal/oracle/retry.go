package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds the number of attempts and the fixed pause between them.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       SleepFunc // nil uses a context-aware timer
}

// FetchFunc performs one attempt. attempt starts at 1.
type FetchFunc func(ctx context.Context, attempt int) (decimal.Decimal, error)

// ContextSleep is the production SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchWithRetry calls fetch until it succeeds or MaxAttempts is reached,
// sleeping Delay between attempts (never after the last one). It returns the
// number of attempts made and the last error when every attempt failed. A
// done context stops further attempts.
func FetchWithRetry(ctx context.Context, p RetryPolicy, fetch FetchFunc) (decimal.Decimal, int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		price, err := fetch(ctx, attempt)
		if err == nil {
			return price, attempt, nil
		}
		lastErr = err
		if attempt == maxAttempts {
			return decimal.Zero, attempt, fmt.Errorf("price fetch failed after %d attempts: %w", attempt, lastErr)
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return decimal.Zero, attempt, fmt.Errorf("price fetch interrupted after %d attempts: %w", attempt, lastErr)
		}
	}
	return decimal.Zero, maxAttempts, lastErr
}
