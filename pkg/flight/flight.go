// Package flight coalesces concurrent lookups of the same key and keeps
// results for a while after they complete.
package flight

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

type Cache[K comparable, V any] struct {
	// finished holds completed results. Each entry keeps a strong reference
	// until its deadline passes, after which only the weak pointer remains.
	finished map[K]*entry[V]
	fmu      *sync.RWMutex

	pending map[K]*job[V]
	pmu     *sync.Mutex

	work func(context.Context, K) (V, error)

	// ttl stores the strong-hold duration in nanoseconds.
	// <= 0 means infinite (never drop the strong reference).
	ttl *atomic.Int64

	now func() time.Time
}

type entry[V any] struct {
	w        weak.Pointer[V]
	strong   *V        // non-nil while within the strong-hold window
	deadline time.Time // zero => infinite
}

type job[V any] struct {
	val  V
	err  error
	done chan struct{}
}

func NewCache[K comparable, V any](ttl time.Duration, work func(context.Context, K) (V, error)) *Cache[K, V] {
	c := &Cache[K, V]{
		finished: make(map[K]*entry[V]),
		fmu:      new(sync.RWMutex),
		pending:  make(map[K]*job[V]),
		pmu:      new(sync.Mutex),
		work:     work,
		ttl:      new(atomic.Int64),
		now:      time.Now,
	}
	c.Expiry(ttl)
	return c
}

// Expiry sets the strong-hold duration for future writes.
// d <= 0 keeps a permanent strong reference.
func (p *Cache[K, V]) Expiry(d time.Duration) {
	if d <= 0 {
		p.ttl.Store(0)
		return
	}
	p.ttl.Store(int64(d))
}

// Get returns the cached value for k or runs work once for all concurrent
// callers. A caller whose ctx ends stops waiting; the shared work keeps
// running for the others and is not bound to any single caller's ctx.
func (p *Cache[K, V]) Get(ctx context.Context, k K) (V, error) {
	p.pmu.Lock()

	if e, ok := p.loadEntry(k); ok {
		if v, ok := p.tryEntry(e); ok {
			p.pmu.Unlock()
			return v, nil
		}
		p.fmu.Lock()
		if cur, ok := p.finished[k]; ok && cur == e && e.w.Value() == nil {
			delete(p.finished, k)
		}
		p.fmu.Unlock()
	}

	j, ok := p.pending[k]
	if !ok {
		j = &job[V]{done: make(chan struct{})}
		p.pending[k] = j
		go p.run(context.WithoutCancel(ctx), k, j)
	}
	p.pmu.Unlock()

	return p.wait(ctx, j)
}

func (p *Cache[K, V]) run(ctx context.Context, k K, j *job[V]) {
	j.val, j.err = p.work(ctx, k)
	if j.err == nil {
		p.storeEntry(k, j.val)
	}

	p.pmu.Lock()
	close(j.done)
	delete(p.pending, k)
	p.pmu.Unlock()
}

func (p *Cache[K, V]) wait(ctx context.Context, j *job[V]) (V, error) {
	select {
	case <-j.done:
		return j.val, j.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (p *Cache[K, V]) ttlDur() time.Duration {
	return time.Duration(p.ttl.Load())
}

func (p *Cache[K, V]) loadEntry(k K) (*entry[V], bool) {
	p.fmu.RLock()
	e, ok := p.finished[k]
	p.fmu.RUnlock()
	if !ok {
		return nil, false
	}

	// If the strong-hold window elapsed, drop the strong pointer.
	if !e.deadline.IsZero() && p.now().After(e.deadline) {
		p.fmu.Lock()
		if cur, ok := p.finished[k]; ok && cur == e && e.strong != nil {
			e.strong = nil
		}
		p.fmu.Unlock()
	}
	return e, true
}

// tryEntry returns the value while it is strongly held. After expiry the
// weak pointer may still resolve until the next GC, which would serve a
// stale value, so expired entries are treated as misses.
func (p *Cache[K, V]) tryEntry(e *entry[V]) (V, bool) {
	p.fmu.RLock()
	strong := e.strong
	p.fmu.RUnlock()
	if strong != nil {
		return *strong, true
	}
	var zero V
	return zero, false
}

func (p *Cache[K, V]) storeEntry(k K, val V) {
	v := new(V)
	*v = val

	e := &entry[V]{w: weak.Make(v), strong: v}
	if d := p.ttlDur(); d > 0 {
		e.deadline = p.now().Add(d)
	}

	p.fmu.Lock()
	p.finished[k] = e
	p.fmu.Unlock()
}
