package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "leaderboard:entries:comp-1", loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "value" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_UsesCachedValueAfterFirstLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "cached", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestLoad_TypedValueAndPrefixInvalidation(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32
	loader := func(context.Context) ([]int, error) {
		calls.Add(1)
		return []int{1, 2, 3}, nil
	}

	got, err := Load(context.Background(), store, "entries:comp-1", loader)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("unexpected value: %v", got)
	}
	if _, err := Load(context.Background(), store, "entries:comp-1", loader); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("loader called %d times, want 1", calls.Load())
	}

	store.DeletePrefix(context.Background(), "entries:")
	if _, err := Load(context.Background(), store, "entries:comp-1", loader); err != nil {
		t.Fatalf("load after invalidation: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected reload after prefix delete, got %d calls", calls.Load())
	}
}

func TestStore_ExpiredEntryIsMiss(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 24, 8, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "k", "v")
	if _, ok := store.Get(context.Background(), "k"); !ok {
		t.Fatalf("expected fresh entry to hit")
	}

	now = now.Add(time.Minute)
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected expired entry to be a miss")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted, len=%d", store.Len())
	}
}

func TestStore_NoTTLKeepsEntries(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	store.now = func() time.Time { return time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC) }
	store.Set(context.Background(), "k", "v")
	if _, ok := store.Get(context.Background(), "k"); !ok {
		t.Fatalf("expected entry without ttl to persist")
	}
}

func TestStore_InvalidationDuringLoadIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32
	loader := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			// a write lands while the first load is reading
			store.Delete(ctx, "leaderboard:entries:comp-1")
		}
		return "stale", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "leaderboard:entries:comp-1", loader); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := store.Get(context.Background(), "leaderboard:entries:comp-1"); ok {
		t.Fatalf("expected load that raced an invalidation to be dropped")
	}
	if _, err := store.GetOrLoad(context.Background(), "leaderboard:entries:comp-1", loader); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a fresh load, got %d calls", calls.Load())
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
