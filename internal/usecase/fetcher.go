package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/repository"
)

var (
	ErrPlanConsumed     = errors.New("page plan already consumed")
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)

// RecordFetcher pages through records older than a cutoff.
type RecordFetcher struct {
	repo   repository.RecordRepository
	logger *zap.Logger
}

func NewRecordFetcher(repo repository.RecordRepository, logger *zap.Logger) *RecordFetcher {
	return &RecordFetcher{repo: repo, logger: logger.Named("fetcher")}
}

// PagePlan is the fixed page layout of one run. The matching row set is
// assumed stable while the plan is consumed.
type PagePlan struct {
	Cutoff    time.Time
	BatchSize int
	Total     int
	PageCount int

	repo     repository.RecordRepository
	logger   *zap.Logger
	consumed atomic.Bool
}

// Plan counts the candidates and lays out ceil(total/batchSize) pages.
func (f *RecordFetcher) Plan(ctx context.Context, cutoff time.Time, batchSize int) (*PagePlan, error) {
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	total, err := f.repo.CountCandidates(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count candidates: %w", err)
	}

	plan := &PagePlan{
		Cutoff:    cutoff,
		BatchSize: batchSize,
		Total:     total,
		PageCount: (total + batchSize - 1) / batchSize,
		repo:      f.repo,
		logger:    f.logger,
	}
	f.logger.Info("page plan ready",
		zap.Time("cutoff", cutoff),
		zap.Int("total", total),
		zap.Int("batch_size", batchSize),
		zap.Int("pages", plan.PageCount),
	)
	return plan, nil
}

// Pages yields the pages in order. A page is fetched only after the loop
// body for the previous one has returned. The sequence can be ranged over
// once; later attempts yield ErrPlanConsumed.
func (p *PagePlan) Pages(ctx context.Context) iter.Seq2[entity.Page, error] {
	return func(yield func(entity.Page, error) bool) {
		if !p.consumed.CompareAndSwap(false, true) {
			yield(entity.Page{}, ErrPlanConsumed)
			return
		}

		for i := 0; i < p.PageCount; i++ {
			if err := ctx.Err(); err != nil {
				yield(entity.Page{Index: i}, err)
				return
			}

			records, err := p.repo.FetchCandidates(ctx, p.Cutoff, p.BatchSize, i*p.BatchSize)
			if err != nil {
				yield(entity.Page{Index: i}, fmt.Errorf("fetch page %d: %w", i, err))
				return
			}
			p.logger.Debug("page fetched", zap.Int("page", i), zap.Int("records", len(records)))

			if !yield(entity.Page{Index: i, Records: records}, nil) {
				return
			}
		}
	}
}
