package entity

import "time"

// PageStats summarizes one drained page.
type PageStats struct {
	Index         int
	Records       int
	Probed        int
	Persisted     int
	WriteFailures int
	Timeouts      int
	Cancelled     int
	FinalLimit    int
	Increments    int
	TimedOutURLs  []string
	Duration      time.Duration
}

// RunSummary aggregates every page of a run.
type RunSummary struct {
	RunID           string
	Cutoff          time.Time
	Total           int
	Pages           int
	Probed          int
	Persisted       int
	WriteFailures   int
	Timeouts        int
	Cancelled       int
	PeakConnections int
	StartedAt       time.Time
	Duration        time.Duration
}

// Progress is a point-in-time view of a running check.
type Progress struct {
	RunID       string    `json:"run_id"`
	Cutoff      string    `json:"cutoff"`
	Total       int       `json:"total"`
	PageCount   int       `json:"page_count"`
	CurrentPage int       `json:"current_page"`
	Probed      int64     `json:"probed"`
	Persisted   int64     `json:"persisted"`
	Timeouts    int64     `json:"timeouts"`
	WorkerLimit int64     `json:"worker_limit"`
	Throughput  float64   `json:"throughput_bytes_per_second"`
	StartedAt   time.Time `json:"started_at"`
	Done        bool      `json:"done"`
}
