package admission

// AIAD is additive increase, additive decrease: it grows like
// AdditiveIncrease and shrinks by the same increment whenever a sample drops
// below ratio times the high-water mark.
type AIAD struct {
	increment int
	ratio     float64
	bounds    Bounds
	hw        highWater
}

func NewAIAD(increment int, ratio float64, b Bounds) *AIAD {
	return &AIAD{increment: increment, ratio: ratio, bounds: b}
}

func (p *AIAD) Next(sample float64, limit int) int {
	switch {
	case p.hw.exceeds(sample):
		p.hw.mark = sample
		return p.bounds.clamp(limit + p.increment)
	case sample < p.hw.mark*p.ratio:
		return p.bounds.clamp(limit - p.increment)
	default:
		return p.bounds.clamp(limit)
	}
}
