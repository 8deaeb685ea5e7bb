package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/repository"
	"github.com/user/linkcheck-service/pkg/metrics"
)

// PeakReporter reports the highest number of store connections held at once.
type PeakReporter interface {
	Peak() int
}

// Checker drives one run: plan the pages, then hand them to the scheduler
// one at a time.
type Checker struct {
	fetcher   *RecordFetcher
	scheduler *ProbeScheduler
	stats     repository.RunStatsRepository
	peak      PeakReporter
	rate      RateReader
	logger    *zap.Logger

	mu       sync.RWMutex
	progress entity.Progress
	probed   atomic.Int64
	persist  atomic.Int64
	timeouts atomic.Int64
}

type CheckerOption func(*Checker)

// WithRunStats persists run statistics. Failures are logged and ignored.
func WithRunStats(r repository.RunStatsRepository) CheckerOption {
	return func(c *Checker) { c.stats = r }
}

func WithPeakReporter(p PeakReporter) CheckerOption {
	return func(c *Checker) { c.peak = p }
}

func WithRateReader(r RateReader) CheckerOption {
	return func(c *Checker) { c.rate = r }
}

func NewChecker(fetcher *RecordFetcher, scheduler *ProbeScheduler, logger *zap.Logger, opts ...CheckerOption) *Checker {
	c := &Checker{
		fetcher:   fetcher,
		scheduler: scheduler,
		logger:    logger.Named("checker"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run checks every record dated before cutoff. It returns ctx.Err() when
// interrupted, after the current page has drained.
func (c *Checker) Run(ctx context.Context, cutoff time.Time, batchSize int) (entity.RunSummary, error) {
	summary := entity.RunSummary{
		RunID:     uuid.NewString(),
		Cutoff:    cutoff,
		StartedAt: time.Now(),
	}
	c.resetProgress(summary)

	plan, err := c.fetcher.Plan(ctx, cutoff, batchSize)
	if err != nil {
		return summary, err
	}
	summary.Total = plan.Total
	summary.Pages = plan.PageCount
	c.updateProgress(func(p *entity.Progress) {
		p.Total = plan.Total
		p.PageCount = plan.PageCount
	})

	logger := c.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("run started", zap.Int("total", plan.Total), zap.Int("pages", plan.PageCount))
	if c.stats != nil {
		if err := c.stats.StartRun(ctx, summary); err != nil {
			logger.Warn("run stats unavailable", zap.Error(err))
		}
	}

	var runErr error
	for page, err := range plan.Pages(ctx) {
		if err != nil {
			runErr = err
			break
		}
		c.updateProgress(func(p *entity.Progress) { p.CurrentPage = page.Index })

		res := c.scheduler.Run(ctx, page)
		st := res.Stats
		summary.Probed += st.Probed
		summary.Persisted += st.Persisted
		summary.WriteFailures += st.WriteFailures
		summary.Timeouts += st.Timeouts
		summary.Cancelled += st.Cancelled
		c.probed.Add(int64(st.Probed))
		c.persist.Add(int64(st.Persisted))
		c.timeouts.Add(int64(st.Timeouts))
		metrics.PagesTotal.Inc()

		logger.Info("page drained",
			zap.Int("page", st.Index),
			zap.Int("records", st.Records),
			zap.Int("persisted", st.Persisted),
			zap.Int("write_failures", st.WriteFailures),
			zap.Int("timeouts", st.Timeouts),
			zap.Int("worker_limit", st.FinalLimit),
			zap.Int("limit_increments", st.Increments),
			zap.Duration("duration", st.Duration),
		)
		if c.stats != nil {
			if err := c.stats.RecordPage(ctx, summary.RunID, st); err != nil {
				logger.Warn("record page stats", zap.Int("page", st.Index), zap.Error(err))
			}
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	if c.peak != nil {
		summary.PeakConnections = c.peak.Peak()
	}
	c.updateProgress(func(p *entity.Progress) { p.Done = true })

	if c.stats != nil {
		// the run context may already be cancelled
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		if err := c.stats.FinishRun(finishCtx, summary); err != nil {
			logger.Warn("record run summary", zap.Error(err))
		}
		cancel()
	}

	logger.Info("run finished",
		zap.Int("pages", summary.Pages),
		zap.Int("probed", summary.Probed),
		zap.Int("persisted", summary.Persisted),
		zap.Int("write_failures", summary.WriteFailures),
		zap.Int("timeouts", summary.Timeouts),
		zap.Int("cancelled", summary.Cancelled),
		zap.Int("peak_connections", summary.PeakConnections),
		zap.Duration("duration", summary.Duration),
	)
	return summary, runErr
}

// Progress returns a snapshot of the current or last run.
func (c *Checker) Progress() entity.Progress {
	c.mu.RLock()
	p := c.progress
	c.mu.RUnlock()

	inPage := int64(0)
	if !p.Done {
		inPage = c.scheduler.Completed()
	}
	p.Probed = c.probed.Load() + inPage
	p.Persisted = c.persist.Load()
	p.Timeouts = c.timeouts.Load()
	p.WorkerLimit = int64(c.scheduler.Limit())
	if c.rate != nil {
		p.Throughput = c.rate.CurrentRate()
	}
	return p
}

func (c *Checker) resetProgress(s entity.RunSummary) {
	c.probed.Store(0)
	c.persist.Store(0)
	c.timeouts.Store(0)
	c.mu.Lock()
	c.progress = entity.Progress{
		RunID:     s.RunID,
		Cutoff:    s.Cutoff.Format(time.DateOnly),
		StartedAt: s.StartedAt,
	}
	c.mu.Unlock()
}

func (c *Checker) updateProgress(fn func(*entity.Progress)) {
	c.mu.Lock()
	fn(&c.progress)
	c.mu.Unlock()
}
