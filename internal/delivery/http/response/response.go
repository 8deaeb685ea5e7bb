package response

import "time"

// HealthResponse reports the reachability of each dependency.
type HealthResponse struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks,omitempty"`
}

// ProgressResponse is the DTO for the running check, mirroring entity.Progress
// plus a completion ratio.
type ProgressResponse struct {
	RunID       string    `json:"run_id"`
	Cutoff      string    `json:"cutoff"`
	Total       int       `json:"total"`
	PageCount   int       `json:"page_count"`
	CurrentPage int       `json:"current_page"`
	Probed      int64     `json:"probed"`
	Persisted   int64     `json:"persisted"`
	Timeouts    int64     `json:"timeouts"`
	Percent     float64   `json:"percent"`
	WorkerLimit int64     `json:"worker_limit"`
	Throughput  float64   `json:"throughput_bytes_per_second"`
	StartedAt   time.Time `json:"started_at"`
	Elapsed     string    `json:"elapsed"`
	Done        bool      `json:"done"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
