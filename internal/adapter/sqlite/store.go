package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id     INTEGER PRIMARY KEY,
    url    TEXT,
    date   TIMESTAMP,
    status INTEGER
);
CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s(date);
`

// Open opens the database file, creating its directory, and caps the pool
// at maxOpen connections.
func Open(path string, maxOpen int) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	if maxOpen < 1 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	return db, nil
}

// EnsureSchema creates the records table and its date index if missing.
func EnsureSchema(ctx context.Context, db *sql.DB, table string) error {
	stmt := fmt.Sprintf(schema, quoteIdent(table), quoteIdent("idx_"+table+"_date"))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return path + "?" + q.Encode()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
