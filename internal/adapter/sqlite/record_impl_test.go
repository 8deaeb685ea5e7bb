package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/linkcheck-service/internal/budget"
)

func setupTestRepo(t *testing.T, gateSize int) (*RecordRepoImpl, *sql.DB, *budget.Gate) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), gateSize)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(context.Background(), db, "account"); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	gate := budget.NewGate(gateSize, time.Second)
	return NewRecordRepo(db, gate, "account"), db, gate
}

func insert(t *testing.T, db *sql.DB, id int64, url, date string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO "account" (id, url, date, status) VALUES (?, ?, ?, NULL)`, id, url, date); err != nil {
		t.Fatalf("insert %d: %v", id, err)
	}
}

func cutoff() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestRecordRepo_CountAndFetch(t *testing.T) {
	repo, db, gate := setupTestRepo(t, 2)
	ctx := context.Background()

	insert(t, db, 3, "c.example", "2019-06-01 00:00:00")
	insert(t, db, 1, "a.example", "2018-01-01 00:00:00")
	insert(t, db, 2, "b.example", "2019-12-31 23:59:59")
	insert(t, db, 4, "d.example", "2020-01-01 00:00:00") // not before cutoff
	insert(t, db, 6, "f.example", "2020-01-01")          // cutoff day, date only
	insert(t, db, 5, "e.example", "2021-05-05 00:00:00")

	n, err := repo.CountCandidates(ctx, cutoff())
	if err != nil {
		t.Fatalf("CountCandidates() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountCandidates() = %d, want 3", n)
	}

	page0, err := repo.FetchCandidates(ctx, cutoff(), 2, 0)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v", err)
	}
	page1, err := repo.FetchCandidates(ctx, cutoff(), 2, 2)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v", err)
	}

	var ids []int64
	for _, r := range append(page0, page1...) {
		ids = append(ids, r.ID)
	}
	if fmt.Sprint(ids) != "[1 2 3]" {
		t.Errorf("fetched ids = %v, want [1 2 3]", ids)
	}
	if page0[0].URL != "a.example" {
		t.Errorf("first URL = %q, want a.example", page0[0].URL)
	}
	if want := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC); !page0[0].Date.Equal(want) {
		t.Errorf("first Date = %v, want %v", page0[0].Date, want)
	}
	if gate.InUse() != 0 {
		t.Errorf("gate InUse() = %d after calls, want 0", gate.InUse())
	}
}

func TestRecordRepo_CutoffIsExclusive(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		eligible bool
	}{
		{name: "day before, date only", date: "2019-12-31", eligible: true},
		{name: "day before, last second", date: "2019-12-31 23:59:59", eligible: true},
		{name: "day before, T separated", date: "2019-12-31T23:59:59Z", eligible: true},
		{name: "cutoff day, date only", date: "2020-01-01", eligible: false},
		{name: "cutoff day, midnight", date: "2020-01-01 00:00:00", eligible: false},
		{name: "cutoff day, T separated", date: "2020-01-01T00:00:00Z", eligible: false},
		{name: "cutoff day, afternoon", date: "2020-01-01 15:30:00", eligible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, db, _ := setupTestRepo(t, 1)
			insert(t, db, 1, "a.example", tt.date)

			n, err := repo.CountCandidates(context.Background(), cutoff())
			if err != nil {
				t.Fatalf("CountCandidates() error = %v", err)
			}
			recs, err := repo.FetchCandidates(context.Background(), cutoff(), 10, 0)
			if err != nil {
				t.Fatalf("FetchCandidates() error = %v", err)
			}

			want := 0
			if tt.eligible {
				want = 1
			}
			if n != want || len(recs) != want {
				t.Errorf("count = %d, fetched = %d, want %d", n, len(recs), want)
			}
		})
	}
}

func TestRecordRepo_UpdateStatus(t *testing.T) {
	repo, db, _ := setupTestRepo(t, 2)
	ctx := context.Background()
	insert(t, db, 7, "example.com", "2019-01-01 00:00:00")

	if err := repo.UpdateStatus(ctx, 7, 404); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	recs, err := repo.FetchCandidates(ctx, cutoff(), 10, 0)
	if err != nil {
		t.Fatalf("FetchCandidates() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Status != 404 {
		t.Errorf("records after update = %+v, want status 404", recs)
	}
}

func TestRecordRepo_GateTimeout(t *testing.T) {
	repo, db, gate := setupTestRepo(t, 1)
	insert(t, db, 1, "example.com", "2019-01-01 00:00:00")

	release, err := gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	err = repo.UpdateStatus(context.Background(), 1, 200)
	if !errors.Is(err, budget.ErrAcquireTimeout) {
		t.Errorf("UpdateStatus() error = %v, want ErrAcquireTimeout", err)
	}
}

func TestRecordRepo_PingDoesNotWaitForGate(t *testing.T) {
	repo, _, gate := setupTestRepo(t, 1)

	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if gate.InUse() != 0 {
		t.Errorf("gate InUse() = %d after Ping, want 0", gate.InUse())
	}

	release, err := gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	start := time.Now()
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping() with a full gate error = %v, want nil", err)
	}
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Errorf("Ping() with a full gate took %v, gate timeout is 1s", d)
	}
}

func TestBudgetDialer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")

	b, err := budget.Negotiate(context.Background(), BudgetDialer(path, 6))
	if err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}
	if b.Max != 6 || b.Active != 0 || b.Capacity != 6 {
		t.Errorf("Negotiate() = %+v, want {6 0 6}", b)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, s := range []string{
		"2019-03-04T05:06:07Z",
		"2019-03-04 05:06:07",
		"2019-03-04 05:06:07 +0000 UTC",
	} {
		if got := parseDate(s); !got.Equal(want) {
			t.Errorf("parseDate(%q) = %v, want %v", s, got, want)
		}
	}
	if got := parseDate("garbage"); !got.IsZero() {
		t.Errorf("parseDate(garbage) = %v, want zero", got)
	}
}
