package budget

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/linkcheck-service/pkg/metrics"
)

var ErrAcquireTimeout = errors.New("timed out waiting for a store connection")

// Gate bounds the number of store connections held at once across the whole
// process. Every repository call runs inside a lease.
type Gate struct {
	slots   chan struct{}
	timeout time.Duration

	inUse atomic.Int64
	peak  atomic.Int64
}

// NewGate creates a gate with capacity slots. A non-positive timeout waits
// until ctx is done.
func NewGate(capacity int, timeout time.Duration) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{
		slots:   make(chan struct{}, capacity),
		timeout: timeout,
	}
}

// Acquire takes one slot. The returned release func is safe to call more
// than once; only the first call frees the slot.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	acqCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	select {
	case g.slots <- struct{}{}:
	case <-acqCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.GateAcquireTimeoutsTotal.Inc()
		return nil, ErrAcquireTimeout
	}

	return g.lease(), nil
}

// TryAcquire takes a slot only if one is free right now.
func (g *Gate) TryAcquire() (func(), bool) {
	select {
	case g.slots <- struct{}{}:
		return g.lease(), true
	default:
		return nil, false
	}
}

// lease accounts for a slot already taken and returns its release func.
func (g *Gate) lease() func() {
	n := g.inUse.Add(1)
	metrics.GateInUse.Set(float64(n))
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			metrics.GateInUse.Set(float64(g.inUse.Add(-1)))
			<-g.slots
		})
	}
}

// Capacity returns the number of slots.
func (g *Gate) Capacity() int { return cap(g.slots) }

// InUse returns the number of leases currently held.
func (g *Gate) InUse() int { return int(g.inUse.Load()) }

// Peak returns the highest number of leases held at once.
func (g *Gate) Peak() int { return int(g.peak.Load()) }
