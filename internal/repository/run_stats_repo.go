package repository

import (
	"context"

	"github.com/user/linkcheck-service/internal/entity"
)

// RunStatsRepository persists per-run statistics outside the checked store.
type RunStatsRepository interface {
	// StartRun records run metadata.
	StartRun(ctx context.Context, summary entity.RunSummary) error
	// RecordPage adds one drained page's counters to the run.
	RecordPage(ctx context.Context, runID string, page entity.PageStats) error
	// FinishRun stores the final summary.
	FinishRun(ctx context.Context, summary entity.RunSummary) error
	// Ping checks that the stats backend is reachable.
	Ping(ctx context.Context) error
}
