// Package lazy implements the lazy initializer family of spec section
// 4.5: Lazy, Resettable, Timeout, and Cached — each a mutex-guarded
// single value behind a narrow public surface.
package lazy

import (
	"context"
	"sync"
	"time"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// Factory produces a T, possibly failing.
type Factory[T any] func(ctx context.Context) (T, error)

// Lazy runs its Factory at most once; concurrent callers block on the
// same in-flight call and all observe its result.
type Lazy[T any] struct {
	once    sync.Once
	factory Factory[T]
	value   T
	err     error
}

// NewLazy constructs a Lazy around factory.
func NewLazy[T any](factory Factory[T]) *Lazy[T] {
	return &Lazy[T]{factory: factory}
}

// Get runs the factory on first call; subsequent calls return the cached
// result, including a cached error.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.once.Do(func() {
		l.value, l.err = l.factory(ctx)
	})
	return l.value, l.err
}

// Resettable re-runs its factory on the next access after a fault, or
// after an explicit Reset. A semaphore of size 1 serializes factory
// invocations so concurrent callers coalesce onto one attempt.
type Resettable[T any] struct {
	mu      sync.Mutex
	factory Factory[T]
	value   T
	err     error
	have    bool
}

// NewResettable constructs a Resettable around factory.
func NewResettable[T any](factory Factory[T]) *Resettable[T] {
	return &Resettable[T]{factory: factory}
}

// Get returns the cached value if present and not faulted; otherwise it
// invokes the factory under the internal lock.
func (r *Resettable[T]) Get(ctx context.Context) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.have && r.err == nil {
		return r.value, nil
	}
	r.value, r.err = r.factory(ctx)
	r.have = true
	return r.value, r.err
}

// Reset clears the cached value, forcing the next Get to re-run the
// factory even on prior success.
func (r *Resettable[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.have = false
	var zero T
	r.value = zero
	r.err = nil
}

// Timeout wraps a factory with a cancelling timer, distinguishing caller
// cancellation (ctx.Err of the caller's own context) from an internal
// timeout.
type Timeout[T any] struct {
	factory Factory[T]
	timeout time.Duration
}

// NewTimeout constructs a Timeout initializer.
func NewTimeout[T any](factory Factory[T], timeout time.Duration) *Timeout[T] {
	return &Timeout[T]{factory: factory, timeout: timeout}
}

// Get runs the factory with timeout applied on top of ctx.
func (t *Timeout[T]) Get(ctx context.Context) (T, error) {
	callerDone := ctx.Done()
	timeoutCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := t.factory(timeoutCtx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-callerDone:
		var zero T
		return zero, scanerrors.Wrap(scanerrors.KindCancelled, "lazy.Timeout.Get", ctx.Err())
	case <-timeoutCtx.Done():
		var zero T
		if ctx.Err() != nil {
			// timeoutCtx derives from ctx, so both channels may be ready.
			return zero, scanerrors.Wrap(scanerrors.KindCancelled, "lazy.Timeout.Get", ctx.Err())
		}
		return zero, scanerrors.Wrap(scanerrors.KindTimeout, "lazy.Timeout.Get", timeoutCtx.Err())
	}
}

// Cached refreshes its value after TTL elapses, or immediately on a
// faulted prior attempt.
type Cached[T any] struct {
	mu        sync.Mutex
	factory   Factory[T]
	ttl       time.Duration
	value     T
	err       error
	fetchedAt time.Time
	have      bool
}

// NewCached constructs a Cached initializer with the given TTL.
func NewCached[T any](factory Factory[T], ttl time.Duration) *Cached[T] {
	return &Cached[T]{factory: factory, ttl: ttl}
}

// Get returns the cached value if fresh, else refreshes.
func (c *Cached[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.have && c.err == nil && time.Since(c.fetchedAt) < c.ttl {
		return c.value, nil
	}
	c.refreshLocked(ctx)
	return c.value, c.err
}

// Refresh forces a re-fetch regardless of TTL.
func (c *Cached[T]) Refresh(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshLocked(ctx)
	return c.value, c.err
}

func (c *Cached[T]) refreshLocked(ctx context.Context) {
	c.value, c.err = c.factory(ctx)
	c.have = true
	c.fetchedAt = time.Now()
}
