package flight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetCoalescesConcurrentCallers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := NewCache(time.Minute, func(_ context.Context, k string) (int, error) {
		calls.Add(1)
		<-release
		return len(k), nil
	})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "abcd")
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = v
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("work ran %d times, want 1", calls.Load())
	}
	for _, v := range results {
		if v != 4 {
			t.Fatalf("results = %v", results)
		}
	}

	if _, err := c.Get(context.Background(), "abcd"); err != nil || calls.Load() != 1 {
		t.Fatalf("cached get recomputed: calls=%d err=%v", calls.Load(), err)
	}
}

func TestExpiredEntryIsRecomputed(t *testing.T) {
	var calls atomic.Int32
	c := NewCache(time.Minute, func(_ context.Context, _ string) (int32, error) {
		return calls.Add(1), nil
	})
	now := time.Now()
	c.now = func() time.Time { return now }

	v, _ := c.Get(context.Background(), "k")
	now = now.Add(2 * time.Minute)
	v2, _ := c.Get(context.Background(), "k")
	if v != 1 || v2 != 2 {
		t.Fatalf("got %d then %d, want 1 then 2", v, v2)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	c := NewCache(time.Minute, func(_ context.Context, _ string) (int, error) {
		if calls.Add(1) == 1 {
			return 0, boom
		}
		return 7, nil
	})
	if _, err := c.Get(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if v, err := c.Get(context.Background(), "k"); err != nil || v != 7 {
		t.Fatalf("second get = %d, %v", v, err)
	}
}

func TestCallerCancellationDoesNotCancelWork(t *testing.T) {
	release := make(chan struct{})
	var workErr atomic.Value
	c := NewCache(time.Minute, func(ctx context.Context, _ string) (string, error) {
		<-release
		if err := ctx.Err(); err != nil {
			workErr.Store(err)
		}
		return "done", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v", err)
	}
	close(release)

	v, err := c.Get(context.Background(), "k")
	if err != nil || v != "done" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if workErr.Load() != nil {
		t.Fatalf("work saw cancelled context: %v", workErr.Load())
	}
}
