package sync

import (
	"context"
	"time"
)

// Entity-specific page sizes for remote listing.
const (
	mailBatchSize     = 50
	contactsBatchSize = 100
	calendarBatchSize = 50
)

// pageDelay is the fixed pause between consecutive page fetches. It is the
// only rate limiting applied to the remote service besides retry backoff.
const pageDelay = 100 * time.Millisecond

// sleepFunc abstracts the inter-page delay so tests can skip it.
type sleepFunc func(ctx context.Context, d time.Duration) error

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

// fetchAll drives an offset-based page loop: it fetches pages of exactly
// limit items until a short page signals end-of-data, pausing pageDelay
// between pages. On a page error the items fetched so far are returned
// alongside the error, so a caller can reconcile partial data.
func fetchAll[T any](ctx context.Context, limit int, sleep sleepFunc, page func(ctx context.Context, offset, limit int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += limit {
		if offset > 0 {
			if err := sleep(ctx, pageDelay); err != nil {
				return all, err
			}
		}
		items, err := page(ctx, offset, limit)
		all = append(all, items...)
		if err != nil {
			return all, err
		}
		if len(items) < limit {
			return all, nil
		}
	}
}
