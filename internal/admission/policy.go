// Package admission decides how many probes may run at once based on the
// observed network throughput.
package admission

import (
	"errors"
	"fmt"
)

const (
	PolicyAdditive    = "additive"
	PolicyAIAD        = "aiad"
	PolicyTokenBucket = "token-bucket"
)

var ErrUnknownPolicy = errors.New("unknown admission policy")

// Policy turns throughput samples into a worker limit. A Policy belongs to a
// single page run and is not safe for concurrent use.
type Policy interface {
	// Next returns the limit to apply after observing sample (bytes/sec)
	// while limit workers were allowed.
	Next(sample float64, limit int) int
}

// Bounds clamps every limit a policy returns.
type Bounds struct {
	Floor   int
	Ceiling int
}

func (b Bounds) clamp(n int) int {
	return max(b.Floor, min(n, b.Ceiling))
}

// Config selects and tunes a policy.
type Config struct {
	Name                string
	Increment           int
	DecreaseRatio       float64 // aiad only
	IncrementsPerSecond float64 // token-bucket only
}

// New builds a fresh policy for one page run.
func New(cfg Config, b Bounds) (Policy, error) {
	if b.Floor > b.Ceiling {
		b.Floor = b.Ceiling
	}
	switch cfg.Name {
	case "", PolicyAdditive:
		return NewAdditiveIncrease(cfg.Increment, b), nil
	case PolicyAIAD:
		return NewAIAD(cfg.Increment, cfg.DecreaseRatio, b), nil
	case PolicyTokenBucket:
		return NewTokenBucket(cfg.Increment, cfg.IncrementsPerSecond, b), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, cfg.Name)
	}
}

// highWater tracks the largest sample seen. The first sample only seeds it.
type highWater struct {
	mark   float64
	seeded bool
}

// exceeds reports whether sample is a new high-water mark, without moving it.
func (h *highWater) exceeds(sample float64) bool {
	if !h.seeded {
		h.seeded = true
		h.mark = sample
		return false
	}
	return sample > h.mark
}
