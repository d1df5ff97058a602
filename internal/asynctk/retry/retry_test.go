package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errAlwaysFails = errors.New("always fails")

func TestExecuteRetriesExactlyMaxRetriesPlusOne(t *testing.T) {
	p := Policy{MaxRetries: 3, InitialWait: time.Millisecond, Multiplier: 1, MaxWait: time.Millisecond}
	var calls int32
	err := Execute(context.Background(), p, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errAlwaysFails
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 4 calls (N+1 with N=3), got %d", got)
	}
}

func TestExecuteSucceedsWithoutExhaustingRetries(t *testing.T) {
	p := Policy{MaxRetries: 5, InitialWait: time.Millisecond, Multiplier: 1, MaxWait: time.Millisecond}
	var calls int32
	err := Execute(context.Background(), p, func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return errAlwaysFails
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestExecuteAbortsImmediatelyOnCancellation(t *testing.T) {
	p := Policy{MaxRetries: 5, InitialWait: 50 * time.Millisecond, Multiplier: 1, MaxWait: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Execute(ctx, p, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errAlwaysFails
	}, nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if got := atomic.LoadInt32(&calls); got > 2 {
		t.Fatalf("expected cancellation to abort quickly, got %d calls", got)
	}
}

func TestExecuteShouldRetryFalseStopsImmediately(t *testing.T) {
	var calls int32
	p := Policy{MaxRetries: 5, InitialWait: time.Millisecond, Multiplier: 1, MaxWait: time.Millisecond}
	err := Execute(context.Background(), p, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errAlwaysFails
	}, func(err error) bool { return false })
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 call when shouldRetry rejects, got %d", got)
	}
}
