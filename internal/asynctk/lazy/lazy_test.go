package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLazyRunsFactoryOnce(t *testing.T) {
	var calls int32
	l := NewLazy(func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get(context.Background())
			if err != nil || v != 42 {
				t.Errorf("got %d, %v", v, err)
			}
		}()
	}
	wg.Wait()
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected factory called once, got %d", calls)
	}
}

func TestResettableRefetchesAfterFault(t *testing.T) {
	var calls int32
	r := NewResettable(func(ctx context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return 0, errors.New("boom")
		}
		return 99, nil
	})

	if _, err := r.Get(context.Background()); err == nil {
		t.Fatal("expected first call to fail")
	}
	v, err := r.Get(context.Background())
	if err != nil || v != 99 {
		t.Fatalf("expected refetch to succeed, got %d, %v", v, err)
	}
}

func TestResettableResetForcesRefetch(t *testing.T) {
	var calls int32
	r := NewResettable(func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})
	first, _ := r.Get(context.Background())
	r.Reset()
	second, _ := r.Get(context.Background())
	if first == second {
		t.Fatal("expected Reset to force a new factory call")
	}
}

func TestTimeoutDistinguishesInternalTimeout(t *testing.T) {
	to := NewTimeout(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, 10*time.Millisecond)

	_, err := to.Get(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestCachedRefreshesAfterTTL(t *testing.T) {
	var calls int32
	c := NewCached(func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, 20*time.Millisecond)

	first, _ := c.Get(context.Background())
	second, _ := c.Get(context.Background())
	if first != second {
		t.Fatal("expected cached value within TTL")
	}
	time.Sleep(40 * time.Millisecond)
	third, _ := c.Get(context.Background())
	if third == second {
		t.Fatal("expected refresh after TTL expiry")
	}
}

func TestCachedForceRefresh(t *testing.T) {
	var calls int32
	c := NewCached(func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}, time.Hour)

	first, _ := c.Get(context.Background())
	second, _ := c.Refresh(context.Background())
	if first == second {
		t.Fatal("expected Refresh to force a new value")
	}
}
