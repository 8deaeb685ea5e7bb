package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/user/linkcheck-service/internal/admission"
	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/workerpool"
	"github.com/user/linkcheck-service/pkg/metrics"
)

// RateReader exposes the latest throughput sample in bytes per second.
type RateReader interface {
	CurrentRate() float64
}

type SchedulerConfig struct {
	Floor   int
	Ceiling int
	Backlog int
	Tick    time.Duration
	Policy  admission.Config
}

// ClampTo lowers the ceiling to the store connection capacity, so that every
// running probe can obtain a connection for its write.
func (c SchedulerConfig) ClampTo(capacity int) SchedulerConfig {
	if capacity > 0 && c.Ceiling > capacity {
		c.Ceiling = capacity
	}
	if c.Floor > c.Ceiling {
		c.Floor = c.Ceiling
	}
	return c
}

// PageResult is what one drained page produced.
type PageResult struct {
	Stats    entity.PageStats
	Outcomes []entity.ProbeOutcome
}

// ProbeScheduler probes every record of a page on a worker pool whose size
// follows the admission policy.
type ProbeScheduler struct {
	probe  Prober
	rate   RateReader
	cfg    SchedulerConfig
	logger *zap.Logger

	limit     atomic.Int64
	completed atomic.Int64
}

func NewProbeScheduler(probe Prober, rate RateReader, cfg SchedulerConfig, logger *zap.Logger) (*ProbeScheduler, error) {
	if _, err := admission.New(cfg.Policy, admission.Bounds{Floor: cfg.Floor, Ceiling: cfg.Ceiling}); err != nil {
		return nil, err
	}
	return &ProbeScheduler{
		probe:  probe,
		rate:   rate,
		cfg:    cfg,
		logger: logger.Named("scheduler"),
	}, nil
}

// Limit returns the worker limit of the page being run.
func (s *ProbeScheduler) Limit() int { return int(s.limit.Load()) }

// Completed returns the number of finished probes of the page being run.
func (s *ProbeScheduler) Completed() int64 { return s.completed.Load() }

// Run probes every record of page and returns once all of them have an
// outcome. Each page starts from a fresh pool at the floor and a fresh
// policy. When ctx is cancelled, queued records are marked cancelled and
// in-flight probes drain.
func (s *ProbeScheduler) Run(ctx context.Context, page entity.Page) PageResult {
	start := time.Now()
	bounds := admission.Bounds{Floor: s.cfg.Floor, Ceiling: s.cfg.Ceiling}
	policy, _ := admission.New(s.cfg.Policy, bounds)

	pool := workerpool.New(ctx, workerpool.Config{
		Floor:   s.cfg.Floor,
		Ceiling: s.cfg.Ceiling,
		Backlog: s.cfg.Backlog,
	})
	limit := pool.Limit()
	s.publishLimit(limit)
	s.completed.Store(0)

	outcomes := make([]entity.ProbeOutcome, len(page.Records))
	var wg sync.WaitGroup
	wg.Add(len(page.Records))

	go func() {
		for i, rec := range page.Records {
			err := pool.Submit(ctx, func(ctx context.Context) {
				defer wg.Done()
				outcomes[i] = s.probe.Probe(ctx, rec)
				s.completed.Add(1)
			})
			if err != nil {
				for j := i; j < len(page.Records); j++ {
					outcomes[j] = entity.ProbeOutcome{RecordID: page.Records[j].ID, Cancelled: true, Err: err}
					wg.Done()
				}
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(s.cfg.Tick)
	tickC := ticker.C
	ctxDone := ctx.Done()
	increments := 0
loop:
	for {
		select {
		case <-done:
			break loop
		case <-ctxDone:
			// stop adjusting, keep waiting for the drain
			ticker.Stop()
			tickC = nil
			ctxDone = nil
		case <-tickC:
			sample := s.rate.CurrentRate()
			next := pool.Resize(policy.Next(sample, limit))
			if next > limit {
				increments++
				metrics.LimitIncrementsTotal.Inc()
				s.logger.Debug("worker limit raised",
					zap.Int("page", page.Index),
					zap.Float64("rate", sample),
					zap.Int("from", limit),
					zap.Int("to", next),
				)
			}
			limit = next
			s.publishLimit(limit)
		}
	}
	ticker.Stop()
	pool.Close()

	res := PageResult{Outcomes: outcomes, Stats: summarize(page, outcomes)}
	res.Stats.FinalLimit = limit
	res.Stats.Increments = increments
	res.Stats.Duration = time.Since(start)
	s.completed.Store(0)
	return res
}

func (s *ProbeScheduler) publishLimit(n int) {
	s.limit.Store(int64(n))
	metrics.WorkerLimit.Set(float64(n))
}

func summarize(page entity.Page, outcomes []entity.ProbeOutcome) entity.PageStats {
	st := entity.PageStats{Index: page.Index, Records: len(page.Records)}
	for _, o := range outcomes {
		if o.Cancelled {
			st.Cancelled++
			continue
		}
		st.Probed++
		if o.Persisted {
			st.Persisted++
		} else {
			st.WriteFailures++
		}
		if o.TimedOut() {
			st.Timeouts++
			st.TimedOutURLs = append(st.TimedOutURLs, o.URL)
		}
	}
	return st
}
