package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/linkcheck-service/internal/budget"
	"github.com/user/linkcheck-service/internal/entity"
)

// RecordRepoImpl provides a concrete implementation for the RecordRepository
// interface using PostgreSQL. Every call holds one gate lease and one pooled
// connection, both released before returning.
type RecordRepoImpl struct {
	db   *pgxpool.Pool
	gate *budget.Gate
	q    queries
}

// NewRecordRepo creates a repository over table.
func NewRecordRepo(db *pgxpool.Pool, gate *budget.Gate, table string) *RecordRepoImpl {
	return &RecordRepoImpl{db: db, gate: gate, q: newQueries(table)}
}

type queries struct {
	count  string
	fetch  string
	update string
}

func newQueries(table string) queries {
	t := pgx.Identifier{table}.Sanitize()
	return queries{
		count:  fmt.Sprintf(`SELECT count(*) FROM %s WHERE "date" < $1`, t),
		fetch:  fmt.Sprintf(`SELECT id, COALESCE(url, ''), "date", COALESCE(status, 0) FROM %s WHERE "date" < $1 ORDER BY id LIMIT $2 OFFSET $3`, t),
		update: fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2`, t),
	}
}

func (r *RecordRepoImpl) conn(ctx context.Context) (*pgxpool.Conn, func(), error) {
	release, err := r.gate.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, func() {
		conn.Release()
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

	var n int64
	if err := conn.QueryRow(ctx, r.q.count, cutoff).Scan(&n); err != nil {
		return 0, wrapPgError("count candidates", err)
	}
	return int(n), nil
}

// FetchCandidates returns one page of records dated before cutoff.
func (r *RecordRepoImpl) FetchCandidates(ctx context.Context, cutoff time.Time, limit, offset int) ([]entity.CandidateRecord, error) {
	conn, done, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	rows, err := conn.Query(ctx, r.q.fetch, cutoff, limit, offset)
	if err != nil {
		return nil, wrapPgError("fetch candidates", err)
	}
	defer rows.Close()

	records := make([]entity.CandidateRecord, 0, limit)
	for rows.Next() {
		var rec entity.CandidateRecord
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Date, &rec.Status); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, wrapPgError("fetch candidates", rows.Err())
}

// UpdateStatus stores status on the record with the given id.
func (r *RecordRepoImpl) UpdateStatus(ctx context.Context, id int64, status int) error {
	conn, done, err := r.conn(ctx)
	if err != nil {
		return err
	}
	defer done()

	_, err = conn.Exec(ctx, r.q.update, status, id)
	return wrapPgError("update status", err)
}

// Ping checks that the store is reachable. It never waits for a gate slot:
// when every slot is held by running store calls it reports healthy.
func (r *RecordRepoImpl) Ping(ctx context.Context) error {
	release, ok := r.gate.TryAcquire()
	if !ok {
		return nil
	}
	defer release()

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return conn.Ping(ctx)
}

func wrapPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: sqlstate %s: %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
