package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/linkcheck-service/internal/entity"
)

var testCutoff = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeRepo is an in-memory RecordRepository.
type fakeRepo struct {
	mu        sync.Mutex
	records   []entity.CandidateRecord
	statuses  map[int64]int
	updates   map[int64]int
	offsets   []int
	events    *eventLog
	updateErr error
	fetchErr  error
}

func newFakeRepo(n int) *fakeRepo {
	r := &fakeRepo{statuses: map[int64]int{}, updates: map[int64]int{}}
	for i := 1; i <= n; i++ {
		r.records = append(r.records, entity.CandidateRecord{
			ID:   int64(i),
			URL:  fmt.Sprintf("host-%d.example", i),
			Date: testCutoff.AddDate(0, 0, -i),
		})
	}
	return r
}

func (r *fakeRepo) candidates(cutoff time.Time) []entity.CandidateRecord {
	var out []entity.CandidateRecord
	for _, rec := range r.records {
		if rec.Date.Before(cutoff) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeRepo) CountCandidates(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.candidates(cutoff)), nil
}

func (r *fakeRepo) FetchCandidates(_ context.Context, cutoff time.Time, limit, offset int) ([]entity.CandidateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	r.offsets = append(r.offsets, offset)
	if r.events != nil {
		r.events.add(fmt.Sprintf("fetch:%d", offset))
	}
	all := r.candidates(cutoff)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return append([]entity.CandidateRecord(nil), all[offset:end]...), nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id int64, status int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.statuses[id] = status
	r.updates[id]++
	return nil
}

func (r *fakeRepo) Ping(context.Context) error { return nil }

func (r *fakeRepo) updateCount(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[id]
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type getterFunc func(ctx context.Context, url string) (int, error)

func (f getterFunc) Get(ctx context.Context, url string) (int, error) { return f(ctx, url) }

type proberFunc func(ctx context.Context, rec entity.CandidateRecord) entity.ProbeOutcome

func (f proberFunc) Probe(ctx context.Context, rec entity.CandidateRecord) entity.ProbeOutcome {
	return f(ctx, rec)
}

type constRate float64

func (r constRate) CurrentRate() float64 { return float64(r) }

// seqRate returns the samples in order, then repeats the last one.
type seqRate struct {
	samples []float64
	calls   atomic.Int64
}

func (r *seqRate) CurrentRate() float64 {
	n := int(r.calls.Add(1)) - 1
	if n >= len(r.samples) {
		n = len(r.samples) - 1
	}
	return r.samples[n]
}

// risingRate returns a strictly increasing sample on every call.
type risingRate struct {
	calls atomic.Int64
}

func (r *risingRate) CurrentRate() float64 {
	return float64(r.calls.Add(1) * 10)
}

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
