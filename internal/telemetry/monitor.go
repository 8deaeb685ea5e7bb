// Package telemetry turns observed network frames into a byte-rate signal.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/linkcheck-service/pkg/metrics"
)

const DefaultInterval = 50 * time.Millisecond

var (
	ErrNoInterface    = errors.New("no usable capture interface")
	ErrAlreadyStarted = errors.New("monitor already started")
)

// FrameSource reports the length of every frame it sees. Payloads never
// leave the source.
type FrameSource interface {
	// Open prepares the source. It fails with ErrNoInterface when nothing
	// can be observed.
	Open() error
	// Run calls observe for each frame until ctx is done.
	Run(ctx context.Context, observe func(n int)) error
	Close() error
}

// Monitor samples a FrameSource and publishes the byte rate of the last
// interval.
type Monitor struct {
	source   FrameSource
	interval time.Duration
	logger   *zap.Logger

	bytes atomic.Int64
	rate  atomic.Uint64 // float64 bits

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

func New(source FrameSource, opts ...Option) *Monitor {
	m := &Monitor{
		source:   source,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens the source and launches the listener and the rate ticker.
// Both stop when ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.group != nil {
		return ErrAlreadyStarted
	}

	if err := m.source.Open(); err != nil {
		return fmt.Errorf("open frame source: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	m.cancel = cancel
	m.group = g

	g.Go(func() error {
		err := m.source.Run(ctx, m.observe)
		if err != nil && ctx.Err() == nil {
			m.logger.Error("frame source stopped", zap.Error(err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				m.tick()
			}
		}
	})

	m.logger.Info("throughput monitor started", zap.Duration("interval", m.interval))
	return nil
}

// Stop cancels both goroutines, waits for them and closes the source.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.group == nil {
		return nil
	}

	m.cancel()
	err := m.group.Wait()
	if cerr := m.source.Close(); cerr != nil && err == nil {
		err = cerr
	}
	m.group, m.cancel = nil, nil
	m.logger.Info("throughput monitor stopped")
	return err
}

// CurrentRate returns the last published rate in bytes per second.
func (m *Monitor) CurrentRate() float64 {
	return math.Float64frombits(m.rate.Load())
}

func (m *Monitor) observe(n int) {
	m.bytes.Add(int64(n))
}

func (m *Monitor) tick() {
	n := m.bytes.Swap(0)
	rate := float64(n) / m.interval.Seconds()
	m.rate.Store(math.Float64bits(rate))
	metrics.ThroughputBytesPerSecond.Set(rate)
}
