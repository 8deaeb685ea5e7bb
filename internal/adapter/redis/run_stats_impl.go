package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/pkg/utils"
)

const (
	defaultPrefix = "linkcheck"
	defaultTTL    = 7 * 24 * time.Hour
)

// RunStatsRepoImpl provides a concrete implementation for the
// RunStatsRepository interface using Redis hashes. A nil receiver is a no-op.
type RunStatsRepoImpl struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RunStatsOption func(*RunStatsRepoImpl)

func WithPrefix(prefix string) RunStatsOption {
	return func(r *RunStatsRepoImpl) { r.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets the expiry of every run key. Zero keeps them forever.
func WithTTL(d time.Duration) RunStatsOption {
	return func(r *RunStatsRepoImpl) { r.ttl = d }
}

// NewRunStatsRepo creates a new instance of RunStatsRepoImpl.
func NewRunStatsRepo(client *redis.Client, opts ...RunStatsOption) *RunStatsRepoImpl {
	r := &RunStatsRepoImpl{client: client, prefix: defaultPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RunStatsRepoImpl) runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s", r.prefix, runID)
}

func (r *RunStatsRepoImpl) timeoutsKey(runID string) string {
	return r.runKey(runID) + ":timeouts"
}

func (r *RunStatsRepoImpl) indexKey() string {
	return r.prefix + ":runs"
}

func (r *RunStatsRepoImpl) expire(ctx context.Context, pipe redis.Pipeliner, keys ...string) {
	if r.ttl <= 0 {
		return
	}
	for _, k := range keys {
		pipe.Expire(ctx, k, r.ttl)
	}
}

// StartRun writes run metadata and indexes the run by start time.
func (r *RunStatsRepoImpl) StartRun(ctx context.Context, s entity.RunSummary) error {
	if r == nil || r.client == nil {
		return nil
	}
	key := r.runKey(s.RunID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key,
		"cutoff", s.Cutoff.Format(time.DateOnly),
		"total", s.Total,
		"pages_planned", s.Pages,
		"started_at", s.StartedAt.UTC().Format(time.RFC3339),
		"state", "running",
	)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(s.StartedAt.Unix()), Member: s.RunID})
	r.expire(ctx, pipe, key)

	_, err := pipe.Exec(ctx)
	return err
}

// RecordPage adds the page counters to the run hash. URLs that timed out are
// kept as hashes in a companion set.
func (r *RunStatsRepoImpl) RecordPage(ctx context.Context, runID string, p entity.PageStats) error {
	if r == nil || r.client == nil {
		return nil
	}
	key := r.runKey(runID)

	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, key, "pages_done", 1)
	pipe.HIncrBy(ctx, key, "probed", int64(p.Probed))
	pipe.HIncrBy(ctx, key, "persisted", int64(p.Persisted))
	pipe.HIncrBy(ctx, key, "write_failures", int64(p.WriteFailures))
	pipe.HIncrBy(ctx, key, "timeouts", int64(p.Timeouts))
	pipe.HIncrBy(ctx, key, "cancelled", int64(p.Cancelled))
	pipe.HIncrBy(ctx, key, "limit_increments", int64(p.Increments))
	pipe.HSet(ctx, key, "last_page", p.Index, "last_worker_limit", p.FinalLimit)

	if len(p.TimedOutURLs) > 0 {
		members := make([]any, 0, len(p.TimedOutURLs))
		for _, u := range p.TimedOutURLs {
			members = append(members, utils.HashURL(u))
		}
		pipe.SAdd(ctx, r.timeoutsKey(runID), members...)
		r.expire(ctx, pipe, r.timeoutsKey(runID))
	}
	r.expire(ctx, pipe, key)

	_, err := pipe.Exec(ctx)
	return err
}

// FinishRun stores the final summary fields.
func (r *RunStatsRepoImpl) FinishRun(ctx context.Context, s entity.RunSummary) error {
	if r == nil || r.client == nil {
		return nil
	}
	key := r.runKey(s.RunID)

	state := "done"
	if s.Cancelled > 0 {
		state = "cancelled"
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key,
		"state", state,
		"duration_ms", s.Duration.Milliseconds(),
		"peak_connections", s.PeakConnections,
		"finished_at", s.StartedAt.Add(s.Duration).UTC().Format(time.RFC3339),
	)
	r.expire(ctx, pipe, key)

	_, err := pipe.Exec(ctx)
	return err
}

// Ping checks that Redis is reachable.
func (r *RunStatsRepoImpl) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}
