// Package workerpool runs tasks on a resizable set of goroutines fed from a
// bounded backlog.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/user/linkcheck-service/pkg/metrics"
)

var ErrClosed = errors.New("worker pool closed")

// Task is one unit of work. It receives the pool's context.
type Task func(ctx context.Context)

type Config struct {
	Floor   int // workers started by New
	Ceiling int // upper bound for Resize
	Backlog int // queued tasks before Submit blocks
}

// Pool starts Floor workers and grows up to Ceiling on Resize. Workers above
// the limit retire after finishing their current task, so lowering the limit
// takes effect by attrition.
type Pool struct {
	ctx   context.Context
	cfg   Config
	tasks chan Task

	limit   atomic.Int64
	workers atomic.Int64
	busy    atomic.Int64

	spawnMu sync.Mutex
	wg      sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool
}

// New creates a pool and starts cfg.Floor workers. Tasks run with ctx.
func New(ctx context.Context, cfg Config) *Pool {
	if cfg.Ceiling < 1 {
		cfg.Ceiling = 1
	}
	cfg.Floor = max(1, min(cfg.Floor, cfg.Ceiling))
	if cfg.Backlog < 0 {
		cfg.Backlog = 0
	}

	p := &Pool{
		ctx:   ctx,
		cfg:   cfg,
		tasks: make(chan Task, cfg.Backlog),
	}
	p.Resize(cfg.Floor)
	return p
}

// Submit queues task, blocking while the backlog is full.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resize sets the worker limit, clamped to [Floor, Ceiling], spawns workers
// up to it and returns the applied limit.
func (p *Pool) Resize(n int) int {
	n = max(p.cfg.Floor, min(n, p.cfg.Ceiling))
	p.limit.Store(int64(n))

	p.spawnMu.Lock()
	defer p.spawnMu.Unlock()
	for p.workers.Load() < int64(n) {
		p.workers.Add(1)
		p.wg.Add(1)
		go p.worker()
	}
	metrics.WorkersRunning.Set(float64(p.workers.Load()))
	return n
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.busy.Add(1)
		task(p.ctx)
		p.busy.Add(-1)
		if p.retire() {
			return
		}
	}
	p.workers.Add(-1)
}

// retire removes the calling worker when the pool is above its limit.
func (p *Pool) retire() bool {
	for {
		n := p.workers.Load()
		if n <= p.limit.Load() {
			return false
		}
		if p.workers.CompareAndSwap(n, n-1) {
			metrics.WorkersRunning.Set(float64(n - 1))
			return true
		}
	}
}

// Close stops accepting tasks, lets workers drain the backlog and waits for
// them to exit.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.closeMu.Unlock()
	p.wg.Wait()
	metrics.WorkersRunning.Set(0)
}

// Limit returns the current worker limit.
func (p *Pool) Limit() int { return int(p.limit.Load()) }

// Workers returns the number of live worker goroutines.
func (p *Pool) Workers() int { return int(p.workers.Load()) }

// Busy returns the number of workers currently running a task.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// Ceiling returns the largest limit Resize will apply.
func (p *Pool) Ceiling() int { return p.cfg.Ceiling }
