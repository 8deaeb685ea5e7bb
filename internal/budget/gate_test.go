package budget

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGate_NeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	g := NewGate(capacity, time.Second)

	var (
		wg      sync.WaitGroup
		current atomic.Int64
		maxSeen atomic.Int64
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer release()

			n := current.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	if got := maxSeen.Load(); got > capacity {
		t.Errorf("observed %d concurrent leases, capacity %d", got, capacity)
	}
	if g.Peak() > capacity {
		t.Errorf("Peak() = %d, capacity %d", g.Peak(), capacity)
	}
	if g.InUse() != 0 {
		t.Errorf("InUse() = %d after all releases, want 0", g.InUse())
	}
}

func TestGate_AcquireTimeout(t *testing.T) {
	g := NewGate(1, 20*time.Millisecond)

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer release()

	start := time.Now()
	_, err = g.Acquire(context.Background())
	if !errors.Is(err, ErrAcquireTimeout) {
		t.Fatalf("second Acquire() error = %v, want ErrAcquireTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Acquire() waited %v, want about 20ms", elapsed)
	}
}

func TestGate_CancelledContext(t *testing.T) {
	g := NewGate(1, time.Minute)
	release, _ := g.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestGate_ReleaseIsIdempotent(t *testing.T) {
	g := NewGate(2, time.Second)

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	release()
	release()

	if g.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", g.InUse())
	}
	// both slots must still be available
	r1, err1 := g.Acquire(context.Background())
	r2, err2 := g.Acquire(context.Background())
	if err1 != nil || err2 != nil {
		t.Fatalf("Acquire() after double release: %v, %v", err1, err2)
	}
	r1()
	r2()
}

func TestGate_TryAcquire(t *testing.T) {
	g := NewGate(1, time.Second)

	release, ok := g.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire() on an empty gate = false")
	}
	if g.InUse() != 1 || g.Peak() != 1 {
		t.Errorf("InUse/Peak = %d/%d, want 1/1", g.InUse(), g.Peak())
	}

	start := time.Now()
	if _, ok := g.TryAcquire(); ok {
		t.Error("TryAcquire() on a full gate = true")
	}
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("TryAcquire() on a full gate took %v", d)
	}

	release()
	release()
	if g.InUse() != 0 {
		t.Errorf("InUse() = %d after release, want 0", g.InUse())
	}
	r, ok := g.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire() after release = false")
	}
	r()
}
