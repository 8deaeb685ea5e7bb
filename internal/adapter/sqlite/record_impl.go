package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/user/linkcheck-service/internal/budget"
	"github.com/user/linkcheck-service/internal/entity"
)

// cutoffLayout is a prefix of every stored layout, so the text comparison
// date < cutoff excludes the whole cutoff day.
const cutoffLayout = time.DateOnly

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RecordRepoImpl implements repository.RecordRepository using SQLite.
type RecordRepoImpl struct {
	db    *sql.DB
	gate  *budget.Gate
	count string
	fetch string
	upd   string
}

// NewRecordRepo creates a repository over table.
func NewRecordRepo(db *sql.DB, gate *budget.Gate, table string) *RecordRepoImpl {
	t := quoteIdent(table)
	return &RecordRepoImpl{
		db:    db,
		gate:  gate,
		count: fmt.Sprintf(`SELECT count(*) FROM %s WHERE date < ?`, t),
		fetch: fmt.Sprintf(`SELECT id, COALESCE(url, ''), date, COALESCE(status, 0) FROM %s WHERE date < ? ORDER BY id LIMIT ? OFFSET ?`, t),
		upd:   fmt.Sprintf(`UPDATE %s SET status = ? WHERE id = ?`, t),
	}
}

func (r *RecordRepoImpl) conn(ctx context.Context) (*sql.Conn, func(), error) {
	release, err := r.gate.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, func() {
		conn.Close()
		release()
	}, nil
}

// CountCandidates returns the number of records dated before cutoff.
func (r *RecordRepoImpl) CountCandidates(ctx context.Context, cutoff time.Time) (int, error) {
	conn, done, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	var n int
	if err := conn.QueryRowContext(ctx, r.count, cutoff.UTC().Format(cutoffLayout)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}

// FetchCandidates returns one page of records dated before cutoff.
func (r *RecordRepoImpl) FetchCandidates(ctx context.Context, cutoff time.Time, limit, offset int) ([]entity.CandidateRecord, error) {
	conn, done, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	rows, err := conn.QueryContext(ctx, r.fetch, cutoff.UTC().Format(cutoffLayout), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	defer rows.Close()

	records := make([]entity.CandidateRecord, 0, limit)
	for rows.Next() {
		var (
			rec  entity.CandidateRecord
			date sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.URL, &date, &rec.Status); err != nil {
			return nil, err
		}
		rec.Date = parseDate(date.String)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateStatus stores status on the record with the given id.
func (r *RecordRepoImpl) UpdateStatus(ctx context.Context, id int64, status int) error {
	conn, done, err := r.conn(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := conn.ExecContext(ctx, r.upd, status, id); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// Ping checks that the store is reachable. It never waits for a gate slot:
// when every slot is held by running store calls it reports healthy.
func (r *RecordRepoImpl) Ping(ctx context.Context) error {
	release, ok := r.gate.TryAcquire()
	if !ok {
		return nil
	}
	defer release()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return conn.PingContext(ctx)
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
