package admission

// AdditiveIncrease raises the limit by a fixed increment whenever throughput
// sets a new high-water mark. It never lowers the limit: rising throughput is
// read as spare capacity and a falling one is ignored.
type AdditiveIncrease struct {
	increment int
	bounds    Bounds
	hw        highWater
}

func NewAdditiveIncrease(increment int, b Bounds) *AdditiveIncrease {
	return &AdditiveIncrease{increment: increment, bounds: b}
}

func (p *AdditiveIncrease) Next(sample float64, limit int) int {
	if !p.hw.exceeds(sample) {
		return p.bounds.clamp(limit)
	}
	p.hw.mark = sample
	return p.bounds.clamp(limit + p.increment)
}
