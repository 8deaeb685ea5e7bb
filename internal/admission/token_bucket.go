package admission

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketPolicy grows like AdditiveIncrease but spends one token per
// increment, so the limit rises at most perSecond times a second. A new
// high-water mark that finds the bucket empty is not consumed and triggers
// again on the next sample.
type TokenBucketPolicy struct {
	increment int
	bounds    Bounds
	limiter   *rate.Limiter
	hw        highWater
	now       func() time.Time
}

func NewTokenBucket(increment int, perSecond float64, b Bounds) *TokenBucketPolicy {
	return &TokenBucketPolicy{
		increment: increment,
		bounds:    b,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		now:       time.Now,
	}
}

func (p *TokenBucketPolicy) Next(sample float64, limit int) int {
	if !p.hw.exceeds(sample) || !p.limiter.AllowN(p.now(), 1) {
		return p.bounds.clamp(limit)
	}
	p.hw.mark = sample
	return p.bounds.clamp(limit + p.increment)
}
