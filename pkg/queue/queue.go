// Package queue runs fire-and-forget background tasks on a fixed pool of
// workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/segmentio/ksuid"

	"branddna/pkg/utils"
)

var (
	ErrFull    = errors.New("queue is full")
	ErrStopped = errors.New("queue is stopped")
)

type Config struct {
	Workers  int
	Capacity int
	// Attempts is the total number of tries per task, at least 1.
	Attempts int
	Backoff  time.Duration
	// Timeout bounds a single attempt. Zero means no bound.
	Timeout time.Duration
}

type Task struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
	ctx  context.Context
}

type Queue struct {
	cfg   Config
	items chan *Task
	stop  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool

	workers sync.WaitGroup
	pending sync.WaitGroup
}

func New(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	return &Queue{
		cfg:   cfg,
		items: make(chan *Task, cfg.Capacity),
		stop:  make(chan struct{}),
	}
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	for i := range q.cfg.Workers {
		q.workers.Add(1)
		go q.processLoop(i)
	}
	log.Info("background queue started", "workers", q.cfg.Workers, "capacity", q.cfg.Capacity)
}

// Stop stops accepting tasks, lets workers finish queued ones and
// returns once every worker exited or ctx is done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.stop)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("background queue stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues run without blocking. The task inherits ctx values but
// not its cancellation.
func (q *Queue) Submit(ctx context.Context, name string, run func(ctx context.Context) error) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return "", ErrStopped
	}

	task := &Task{
		ID:   ksuid.New().String(),
		Name: name,
		Run:  run,
		ctx:  context.WithoutCancel(ctx),
	}
	q.pending.Add(1)
	select {
	case q.items <- task:
		return task.ID, nil
	default:
		q.pending.Done()
		return "", ErrFull
	}
}

// Wait blocks until every submitted task has finished.
func (q *Queue) Wait() {
	q.pending.Wait()
}

func (q *Queue) processLoop(worker int) {
	defer q.workers.Done()
	for {
		select {
		case task := <-q.items:
			q.processItem(worker, task)
		case <-q.stop:
			q.drain(worker)
			return
		}
	}
}

func (q *Queue) drain(worker int) {
	for {
		select {
		case task := <-q.items:
			q.processItem(worker, task)
		default:
			return
		}
	}
}

func (q *Queue) processItem(worker int, task *Task) {
	defer q.pending.Done()
	logger := log.With("task", task.Name, "id", task.ID, "worker", worker)

	for attempt := 1; attempt <= q.cfg.Attempts; attempt++ {
		err := q.runOnce(task)
		if err == nil {
			logger.Debug("task finished", "attempt", attempt)
			return
		}
		if attempt == q.cfg.Attempts {
			logger.Error("task failed", "attempts", attempt, "error", err)
			return
		}
		wait := utils.Backoff(attempt, q.cfg.Backoff, time.Minute)
		logger.Warn("task failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		if !q.backoff(wait) {
			logger.Error("task abandoned on shutdown", "attempts", attempt, "error", err)
			return
		}
	}
}

// backoff waits d and reports false when the queue is stopped first.
func (q *Queue) backoff(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-q.stop:
		return false
	}
}

// runOnce isolates a single attempt so a panic is reported as an error.
func (q *Queue) runOnce(task *Task) (err error) {
	ctx := task.ctx
	if q.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Debug("task panic", "task", task.Name, "stack", string(debug.Stack()))
		}
	}()
	return task.Run(ctx)
}
