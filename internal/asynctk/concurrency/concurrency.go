// Package concurrency implements the remaining Async Coordination
// Toolkit primitives of spec section 4.5: ParallelForEach,
// ExecuteWithConcurrency, BatchProcess, FirstSuccessful, and Debounce.
// Built on golang.org/x/sync/semaphore for the bounded-parallelism gate,
// the same package the path validation service uses.
package concurrency

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// ParallelForEach invokes body for every item with at most maxDop
// concurrent calls. The first error encountered is returned after all
// in-flight calls complete; ctx cancellation stops dispatching further
// items.
func ParallelForEach[T any](ctx context.Context, items []T, maxDop int, body func(ctx context.Context, item T) error) error {
	if maxDop <= 0 {
		maxDop = 1
	}
	sem := semaphore.NewWeighted(int64(maxDop))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return scanerrors.Wrap(scanerrors.KindCancelled, "concurrency.ParallelForEach", err)
		}
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer sem.Release(1)
			if err := body(ctx, item); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()
	return firstErr
}

// ExecuteWithConcurrency runs ops with at most maxDop concurrent calls,
// collecting results in order.
func ExecuteWithConcurrency[T any](ctx context.Context, ops []func(ctx context.Context) (T, error), maxDop int) ([]T, error) {
	results := make([]T, len(ops))
	errs := make([]error, len(ops))
	indexed := make([]int, len(ops))
	for i := range ops {
		indexed[i] = i
	}

	err := ParallelForEach(ctx, indexed, maxDop, func(ctx context.Context, i int) error {
		v, opErr := ops[i](ctx)
		results[i] = v
		errs[i] = opErr
		return opErr
	})
	if err != nil {
		return results, err
	}
	for _, e := range errs {
		if e != nil {
			return results, e
		}
	}
	return results, nil
}

// BatchProcess splits items into chunks of batchSize, processing each
// chunk with up to maxDop concurrent items.
func BatchProcess[T any](ctx context.Context, items []T, batchSize, maxDop int, body func(ctx context.Context, item T) error) error {
	if batchSize <= 0 {
		batchSize = len(items)
	}
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := ParallelForEach(ctx, items[start:end], maxDop, body); err != nil {
			return err
		}
	}
	return nil
}

// FirstSuccessful runs all factories concurrently and returns the first
// non-error result, cancelling the rest. Returns the last error if all
// fail.
func FirstSuccessful[T any](ctx context.Context, factories []func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, len(factories))
	for _, f := range factories {
		f := f
		go func() {
			v, err := f(ctx)
			ch <- result{v, err}
		}()
	}

	var lastErr error
	var zero T
	for range factories {
		r := <-ch
		if r.err == nil {
			cancel()
			return r.value, nil
		}
		lastErr = r.err
	}
	if lastErr == nil {
		lastErr = scanerrors.Wrap(scanerrors.KindFatal, "concurrency.FirstSuccessful", nil)
	}
	return zero, lastErr
}

// Debouncer cancels a pending call if re-entered within delay of the
// previous call, per spec section 4.5's Debounce primitive.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	cancel context.CancelFunc
}

// NewDebouncer constructs a Debouncer with the given delay window.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Call schedules op to run after delay, cancelling any call scheduled
// within the window.
func (d *Debouncer) Call(ctx context.Context, op func(ctx context.Context)) {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	callCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	go func() {
		defer timer.Stop()
		select {
		case <-callCtx.Done():
			return
		case <-timer.C:
			op(callCtx)
		}
	}()
}
