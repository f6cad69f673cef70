package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestStore(at time.Time) (*Store, *time.Time) {
	now := at
	s := NewStore()
	s.now = func() time.Time { return now }
	return s, &now
}

func TestGetOrCompute_ColdStartComputes(t *testing.T) {
	s, _ := newTestStore(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	calls := 0

	v, meta, err := GetOrCompute(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || calls != 1 {
		t.Fatalf("v=%v calls=%d", v, calls)
	}
	if meta.Cached || meta.Stale {
		t.Fatalf("fresh compute flagged cached/stale: %+v", meta)
	}
}

func TestGetOrCompute_LiveHitSkipsCompute(t *testing.T) {
	s, _ := newTestStore(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _, _ = GetOrCompute(context.Background(), s, "k", time.Minute, fn)
	v, meta, err := GetOrCompute(context.Background(), s, "k", time.Minute, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("compute ran %d times, want 1", calls)
	}
	if v != 1 || !meta.Cached || meta.Stale {
		t.Fatalf("v=%v meta=%+v", v, meta)
	}
}

func TestGetOrCompute_ExpiredRefreshes(t *testing.T) {
	s, now := newTestStore(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _, _ = GetOrCompute(context.Background(), s, "k", time.Minute, fn)
	*now = now.Add(2 * time.Minute)
	v, meta, err := GetOrCompute(context.Background(), s, "k", time.Minute, fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 || v != 2 {
		t.Fatalf("calls=%d v=%v, want refresh", calls, v)
	}
	if meta.Cached || meta.Stale {
		t.Fatalf("refreshed value flagged cached/stale: %+v", meta)
	}
}

func TestGetOrCompute_StalenessFallback(t *testing.T) {
	s, now := newTestStore(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	computedAt := *now

	_, _, _ = GetOrCompute(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})

	*now = now.Add(5 * time.Minute)
	v, meta, err := GetOrCompute(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) {
		return 0, errBoom
	})
	if err != nil {
		t.Fatalf("stale fallback must not error, got %v", err)
	}
	if v != 7 || !meta.Stale || !meta.Cached {
		t.Fatalf("v=%v meta=%+v, want stale 7", v, meta)
	}
	if !meta.ComputedAt.Equal(computedAt) {
		t.Fatalf("staleness reset the clock: %v != %v", meta.ComputedAt, computedAt)
	}
}

func TestGetOrCompute_StaleKeepsAgingUntilSuccess(t *testing.T) {
	s, now := newTestStore(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	computedAt := *now

	_, _, _ = GetOrCompute(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})

	fail := func(context.Context) (int, error) { return 0, errBoom }
	for i := 0; i < 3; i++ {
		*now = now.Add(time.Hour)
		_, meta, err := GetOrCompute(context.Background(), s, "k", time.Minute, fail)
		if err != nil || !meta.Stale {
			t.Fatalf("round %d: err=%v meta=%+v", i, err, meta)
		}
		if !meta.ComputedAt.Equal(computedAt) {
			t.Fatalf("round %d: computedAt moved to %v", i, meta.ComputedAt)
		}
	}

	// a successful refresh clears staleness
	v, meta, err := GetOrCompute(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) {
		return 8, nil
	})
	if err != nil || v != 8 || meta.Stale {
		t.Fatalf("recovery failed: v=%v meta=%+v err=%v", v, meta, err)
	}
}

func TestGetOrCompute_ColdStartFailurePropagates(t *testing.T) {
	s, _ := newTestStore(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	_, _, err := GetOrCompute(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) {
		return 0, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatal("failed cold start must not fabricate an entry")
	}
}

func TestGetOrCompute_IndependentKeys(t *testing.T) {
	s, _ := newTestStore(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	_, _, _ = GetOrCompute(context.Background(), s, "a", time.Minute, func(context.Context) (int, error) { return 1, nil })
	_, _, _ = GetOrCompute(context.Background(), s, "b", time.Hour, func(context.Context) (int, error) { return 2, nil })
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	va, _, _ := GetOrCompute(context.Background(), s, "a", time.Minute, func(context.Context) (int, error) { return 0, errBoom })
	vb, _, _ := GetOrCompute(context.Background(), s, "b", time.Hour, func(context.Context) (int, error) { return 0, errBoom })
	if va != 1 || vb != 2 {
		t.Fatalf("keys bled into each other: a=%v b=%v", va, vb)
	}
}

func TestGetOrCompute_SingleFlightDedup(t *testing.T) {
	s, _ := newTestStore(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	var calls int32
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := GetOrCompute(context.Background(), s, "k", time.Minute, func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				<-gate
				return 99, nil
			})
			if err != nil || v != 99 {
				t.Errorf("v=%v err=%v", v, err)
			}
		}()
	}
	// let the goroutines pile up on the same key before releasing
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("compute ran %d times under concurrency, want 1", n)
	}
}
