package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/repository"
	"github.com/user/linkcheck-service/pkg/metrics"
	"github.com/user/linkcheck-service/pkg/utils"
)

// HTTPGetter issues a single GET and reports the response status.
type HTTPGetter interface {
	Get(ctx context.Context, url string) (int, error)
}

// Prober checks one record and persists the result.
type Prober interface {
	Probe(ctx context.Context, rec entity.CandidateRecord) entity.ProbeOutcome
}

// StatusProbe fetches a record's URL once and writes the status back.
// Network failures of any kind are recorded as entity.StatusTimeout. Nothing
// is retried.
type StatusProbe struct {
	client HTTPGetter
	repo   repository.RecordRepository
	logger *zap.Logger
}

func NewStatusProbe(client HTTPGetter, repo repository.RecordRepository, logger *zap.Logger) *StatusProbe {
	return &StatusProbe{client: client, repo: repo, logger: logger.Named("probe")}
}

func (p *StatusProbe) Probe(ctx context.Context, rec entity.CandidateRecord) entity.ProbeOutcome {
	out := entity.ProbeOutcome{RecordID: rec.ID, URL: utils.NormalizeURL(rec.URL)}

	start := time.Now()
	status, err := p.client.Get(ctx, out.URL)
	out.Latency = time.Since(start)

	if ctx.Err() != nil {
		out.Cancelled = true
		out.Err = ctx.Err()
		metrics.ProbesTotal.WithLabelValues("cancelled").Inc()
		return out
	}
	if err != nil {
		status = entity.StatusTimeout
		out.Err = err
	}
	out.Status = status
	metrics.ProbesTotal.WithLabelValues(metrics.StatusClass(status)).Inc()
	metrics.ProbeDuration.Observe(out.Latency.Seconds())

	if err := p.repo.UpdateStatus(ctx, rec.ID, status); err != nil {
		metrics.WriteFailuresTotal.Inc()
		p.logger.Warn("status write failed",
			zap.Int64("id", rec.ID),
			zap.Int("status", status),
			zap.Error(err),
		)
		return out
	}
	out.Persisted = true

	p.logger.Debug("probed",
		zap.Int64("id", rec.ID),
		zap.String("url", out.URL),
		zap.Int("status", status),
		zap.Duration("latency", out.Latency),
	)
	return out
}
