package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFetchAll_StopsAfterShortPage(t *testing.T) {
	// Two full pages of 5, then a short page of 2.
	items := make([]int, 12)
	for i := range items {
		items[i] = i
	}

	var calls int
	got, err := fetchAll(context.Background(), 5, noSleep,
		func(_ context.Context, offset, limit int) ([]int, error) {
			calls++
			return pageSlice(items, offset, limit), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 12 {
		t.Errorf("got %d items, want 12", len(got))
	}
	if calls != 3 {
		t.Errorf("page calls = %d, want 3", calls)
	}
}

func TestFetchAll_ExactMultipleFetchesEmptyFinalPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	var calls int
	got, err := fetchAll(context.Background(), 5, noSleep,
		func(_ context.Context, offset, limit int) ([]int, error) {
			calls++
			return pageSlice(items, offset, limit), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d items, want 5", len(got))
	}
	// A full first page cannot signal end-of-data, so a second, empty fetch
	// is needed.
	if calls != 2 {
		t.Errorf("page calls = %d, want 2", calls)
	}
}

func TestFetchAll_ErrorKeepsPartialResults(t *testing.T) {
	boom := errors.New("page 2 failed")
	got, err := fetchAll(context.Background(), 3, noSleep,
		func(_ context.Context, offset, _ int) ([]int, error) {
			if offset >= 3 {
				return nil, boom
			}
			return []int{1, 2, 3}, nil
		})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(got) != 3 {
		t.Errorf("kept %d items, want 3 partial results", len(got))
	}
}

func TestFetchAll_DelaysBetweenPagesOnly(t *testing.T) {
	items := make([]int, 12)
	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := fetchAll(context.Background(), 5, sleep,
		func(_ context.Context, offset, limit int) ([]int, error) {
			return pageSlice(items, offset, limit), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 3 pages → 2 gaps, no delay before the first page.
	if len(delays) != 2 {
		t.Fatalf("got %d delays, want 2", len(delays))
	}
	for i, d := range delays {
		if d != pageDelay {
			t.Errorf("delay %d = %v, want %v", i, d, pageDelay)
		}
	}
}

func TestFetchAll_CancelledSleepReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := make([]int, 10)

	got, err := fetchAll(ctx, 5, func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}, func(_ context.Context, offset, limit int) ([]int, error) {
		return pageSlice(items, offset, limit), nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(got) != 5 {
		t.Errorf("kept %d items, want the 5 from the first page", len(got))
	}
}

func TestFetchAll_OffsetAdvancesByLimit(t *testing.T) {
	var offsets []int
	_, err := fetchAll(context.Background(), 4, noSleep,
		func(_ context.Context, offset, limit int) ([]int, error) {
			offsets = append(offsets, offset)
			if offset >= 8 {
				return nil, nil
			}
			page := make([]int, limit)
			return page, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := fmt.Sprint([]int{0, 4, 8})
	if got := fmt.Sprint(offsets); got != want {
		t.Errorf("offsets = %v, want %v", got, want)
	}
}
