package repository

import (
	"context"
	"time"

	"github.com/user/linkcheck-service/internal/entity"
)

// RecordRepository defines the contract for reading candidate records and
// writing probe results back. Every call holds at most one store connection.
type RecordRepository interface {
	// CountCandidates returns the number of records dated before cutoff.
	CountCandidates(ctx context.Context, cutoff time.Time) (int, error)
	// FetchCandidates returns up to limit records dated before cutoff,
	// ordered by id, skipping the first offset matches.
	FetchCandidates(ctx context.Context, cutoff time.Time, limit, offset int) ([]entity.CandidateRecord, error)
	// UpdateStatus stores status on the record with the given id.
	UpdateStatus(ctx context.Context, id int64, status int) error
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
