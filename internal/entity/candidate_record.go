package entity

import "time"

// CandidateRecord mirrors one row of the checked table. It is a read-only
// snapshot; the row itself is the destination for status updates.
type CandidateRecord struct {
	ID     int64
	URL    string
	Date   time.Time
	Status int
}

// Page is one batch of candidate records, numbered from zero.
type Page struct {
	Index   int
	Records []CandidateRecord
}
