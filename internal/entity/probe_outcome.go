package entity

import "time"

// StatusTimeout is recorded for every probe that did not produce an HTTP
// response: timeouts, refused connections, DNS failures.
const StatusTimeout = 408

// ProbeOutcome is the result of probing a single record.
type ProbeOutcome struct {
	RecordID  int64
	URL       string // normalized URL actually requested
	Status    int
	Latency   time.Duration
	Err       error // transport error collapsed into StatusTimeout, if any
	Persisted bool
	Cancelled bool // run was cancelled before the outcome could be written
}

// TimedOut reports whether the outcome carries the synthetic timeout status.
func (o ProbeOutcome) TimedOut() bool {
	return o.Status == StatusTimeout
}
