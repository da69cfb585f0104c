package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRetriesAndRecovers(t *testing.T) {
	q := New(Config{Workers: 2, Capacity: 10, Attempts: 3, Backoff: time.Millisecond})
	q.Start()
	defer q.Stop(context.Background())

	var flaky, panicky atomic.Int32
	if _, err := q.Submit(context.Background(), "flaky", func(ctx context.Context) error {
		if flaky.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := q.Submit(context.Background(), "panicky", func(ctx context.Context) error {
		panicky.Add(1)
		panic("boom")
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	q.Wait()
	if flaky.Load() != 3 {
		t.Fatalf("flaky ran %d times, want 3", flaky.Load())
	}
	if panicky.Load() != 3 {
		t.Fatalf("panicky ran %d times, want 3", panicky.Load())
	}
}

func TestSubmitDoesNotBlockWhenFull(t *testing.T) {
	q := New(Config{Workers: 1, Capacity: 1, Attempts: 1})
	// Not started: the single slot fills and the next submit must fail fast.
	if _, err := q.Submit(context.Background(), "a", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := q.Submit(context.Background(), "b", func(context.Context) error { return nil })
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrFull) {
			t.Fatalf("err = %v, want ErrFull", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	q.Start()
	q.Wait()
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := q.Submit(context.Background(), "c", func(context.Context) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestTaskOutlivesRequestContext(t *testing.T) {
	q := New(Config{Workers: 1, Attempts: 1})
	q.Start()
	defer q.Stop(context.Background())

	type key struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "sel"))
	started := make(chan struct{})
	var sawErr error
	var sawValue any
	if _, err := q.Submit(ctx, "detached", func(ctx context.Context) error {
		<-started
		sawErr = ctx.Err()
		sawValue = ctx.Value(key{})
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()
	close(started)
	q.Wait()

	if sawErr != nil {
		t.Fatalf("task context canceled with request: %v", sawErr)
	}
	if sawValue != "sel" {
		t.Fatalf("task lost request values: %v", sawValue)
	}
}

func TestStopInterruptsBackoff(t *testing.T) {
	q := New(Config{Workers: 1, Attempts: 3, Backoff: time.Minute})
	q.Start()

	var runs atomic.Int32
	failed := make(chan struct{})
	if _, err := q.Submit(context.Background(), "failing", func(context.Context) error {
		if runs.Add(1) == 1 {
			close(failed)
		}
		return errors.New("transient")
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-failed

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop during backoff: %v after %v", err, time.Since(start))
	}
	q.Wait()
	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want the retry abandoned", runs.Load())
	}
}
