package batch

import (
	"context"
	"errors"
	"testing"
)

func TestProcessBatchPreservesOrder(t *testing.T) {
	p := New(Options{WorkerCount: 4}, func(ctx context.Context, item int) (int, error) {
		return item * 2, nil
	})
	results, err := p.ProcessBatch(context.Background(), []int{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 4, 6, 8, 10}
	for i, w := range want {
		if results[i] != w {
			t.Fatalf("got %v, want %v", results, want)
		}
	}
}

func TestProcessBatchContinuesAfterItemFailure(t *testing.T) {
	p := New(Options{WorkerCount: 2}, func(ctx context.Context, item int) (int, error) {
		if item == 3 {
			return 0, errors.New("boom")
		}
		return item, nil
	})
	results, err := p.ProcessBatch(context.Background(), []int{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	snap := p.Snapshot()
	if snap.FailedItems != 1 || snap.ItemsProcessed != 3 {
		t.Fatalf("got %+v", snap)
	}
}

func TestProcessBatchUpdatesSmoothedLatency(t *testing.T) {
	p := New(Options{WorkerCount: 2}, func(ctx context.Context, item int) (int, error) {
		return item, nil
	})
	if _, err := p.ProcessBatch(context.Background(), []int{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	snap := p.Snapshot()
	if snap.SmoothedLatency() < 0 {
		t.Fatalf("expected non-negative smoothed latency, got %v", snap.SmoothedLatency())
	}
}

func TestDisposedProcessorRejectsSubmissions(t *testing.T) {
	p := New(Options{WorkerCount: 1}, func(ctx context.Context, item int) (int, error) { return item, nil })
	p.Dispose()
	if _, err := p.ProcessBatch(context.Background(), []int{1}); err == nil {
		t.Fatal("expected disposed processor to reject submissions")
	}
}

func TestProcessStreamDeliversResults(t *testing.T) {
	p := New(Options{WorkerCount: 2, ChannelCapacity: 4}, func(ctx context.Context, item int) (int, error) {
		return item + 1, nil
	})
	in := make(chan int, 3)
	in <- 1
	in <- 2
	in <- 3
	close(in)

	out := p.ProcessStream(context.Background(), in)
	seen := make(map[int]bool)
	for v := range out {
		seen[v] = true
	}
	if len(seen) != 3 || !seen[2] || !seen[3] || !seen[4] {
		t.Fatalf("got %v", seen)
	}
}
