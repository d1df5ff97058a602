package concurrency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParallelForEachVisitsAll(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var sum int64
	err := ParallelForEach(context.Background(), items, 2, func(ctx context.Context, item int) error {
		atomic.AddInt64(&sum, int64(item))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sum != 15 {
		t.Fatalf("expected sum 15, got %d", sum)
	}
}

func TestParallelForEachReturnsFirstError(t *testing.T) {
	errBoom := errors.New("boom")
	err := ParallelForEach(context.Background(), []int{1, 2, 3}, 3, func(ctx context.Context, item int) error {
		if item == 2 {
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
}

func TestExecuteWithConcurrencyPreservesOrder(t *testing.T) {
	ops := []func(ctx context.Context) (int, error){
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 2, nil },
		func(ctx context.Context) (int, error) { return 3, nil },
	}
	results, err := ExecuteWithConcurrency(context.Background(), ops, 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0] != 1 || results[1] != 2 || results[2] != 3 {
		t.Fatalf("got %v", results)
	}
}

func TestFirstSuccessfulReturnsFastestSuccess(t *testing.T) {
	factories := []func(ctx context.Context) (string, error){
		func(ctx context.Context) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return "slow", nil
		},
		func(ctx context.Context) (string, error) {
			return "fast", nil
		},
	}
	v, err := FirstSuccessful(context.Background(), factories)
	if err != nil || v != "fast" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestFirstSuccessfulReturnsErrorWhenAllFail(t *testing.T) {
	errBoom := errors.New("boom")
	factories := []func(ctx context.Context) (string, error){
		func(ctx context.Context) (string, error) { return "", errBoom },
		func(ctx context.Context) (string, error) { return "", errBoom },
	}
	_, err := FirstSuccessful(context.Background(), factories)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
}

func TestDebouncerCancelsPendingCall(t *testing.T) {
	var calls int32
	d := NewDebouncer(30 * time.Millisecond)
	for i := 0; i < 5; i++ {
		d.Call(context.Background(), func(ctx context.Context) {
			atomic.AddInt32(&calls, 1)
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one call to survive debouncing, got %d", calls)
	}
}
