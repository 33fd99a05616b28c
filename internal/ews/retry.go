package ews

import (
	"context"
	"time"
)

const (
	// defaultMaxAttempts is the number of tries before a Retrier gives up.
	defaultMaxAttempts = 3

	// defaultBaseDelay is the backoff delay before the first retry; the
	// delay after retry n is base * 2^n.
	defaultBaseDelay = time.Second

	// defaultMaxDelay caps the backoff delay.
	defaultMaxDelay = 30 * time.Second
)

// Retrier executes remote-call closures with exponential backoff on
// classified-retryable failures (see [IsRetryable]). Non-retryable errors
// propagate immediately; after the attempt budget is exhausted, the last
// error is returned as-is so callers can still inspect the cause.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// sleep waits for the given delay or until ctx is done. Overridden in
	// tests to make backoff deterministic.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier returns a Retrier with the default attempt and delay budget.
func NewRetrier() *Retrier {
	return &Retrier{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		sleep:       sleepCtx,
	}
}

// Do executes fn, retrying on retryable errors up to MaxAttempts total
// attempts with delays BaseDelay, 2*BaseDelay, 4*BaseDelay, … between them.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := range r.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt < r.MaxAttempts-1 {
			if err := r.sleep(ctx, r.delay(attempt)); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// delay computes the backoff for a given attempt index: base * 2^attempt,
// capped at MaxDelay.
func (r *Retrier) delay(attempt int) time.Duration {
	d := r.BaseDelay << attempt
	if d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
