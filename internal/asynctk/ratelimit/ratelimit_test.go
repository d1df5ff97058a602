package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketTryAcquire(t *testing.T) {
	b := NewTokenBucket(3, 3, time.Hour)
	defer b.Close()

	if !b.TryAcquire(3) {
		t.Fatal("expected 3 tokens to be available")
	}
	if b.TryAcquire(1) {
		t.Fatal("expected bucket to be empty")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	b := NewTokenBucket(2, 2, 20*time.Millisecond)
	defer b.Close()

	if !b.TryAcquire(2) {
		t.Fatal("expected initial tokens")
	}
	time.Sleep(60 * time.Millisecond)
	if !b.TryAcquire(2) {
		t.Fatal("expected refill to have occurred")
	}
}

func TestTokenBucketAcquireRespectsCancellation(t *testing.T) {
	b := NewTokenBucket(1, 1, time.Hour)
	defer b.Close()
	b.TryAcquire(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Acquire(ctx, 1); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestSlidingWindowAllowsUpToMaxWithinWindow(t *testing.T) {
	// Invariant: over window W with max M, allowed acquisitions in any
	// aligned window of length W <= M.
	w := NewSlidingWindow(3, 50*time.Millisecond)
	allowed := 0
	for i := 0; i < 5; i++ {
		if w.TryAcquire() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("expected exactly 3 allowed, got %d", allowed)
	}
}

func TestSlidingWindowAllowsAgainAfterExpiry(t *testing.T) {
	w := NewSlidingWindow(1, 30*time.Millisecond)
	if !w.TryAcquire() {
		t.Fatal("expected first acquire to succeed")
	}
	if w.TryAcquire() {
		t.Fatal("expected second immediate acquire to fail")
	}
	time.Sleep(50 * time.Millisecond)
	if !w.TryAcquire() {
		t.Fatal("expected acquire to succeed after window expiry")
	}
}

func TestSlidingWindowAcquireBlocksUntilSlotFrees(t *testing.T) {
	w := NewSlidingWindow(1, 40*time.Millisecond)
	w.TryAcquire()

	start := time.Now()
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("expected Acquire to wait for the window to free a slot")
	}
}
