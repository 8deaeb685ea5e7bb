package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkcheck"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served by the status server.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests served by the status server.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Total number of URL probes by outcome class.",
		},
		[]string{"class"}, // 2xx, 3xx, 4xx, 5xx, timeout, cancelled
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Latency of URL probes.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 10},
		},
	)

	WriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_write_failures_total",
			Help:      "Status updates that could not be persisted.",
		},
	)

	WorkerLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_limit",
			Help:      "Current worker limit of the active page run.",
		},
	)

	WorkersRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_running",
			Help:      "Workers currently spawned by the active page run.",
		},
	)

	LimitIncrementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limit_increments_total",
			Help:      "Number of times the admission policy raised the worker limit.",
		},
	)

	ThroughputBytesPerSecond = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_bytes_per_second",
			Help:      "Most recent network throughput sample.",
		},
	)

	GateInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_gate_in_use",
			Help:      "Database leases currently held.",
		},
	)

	GateAcquireTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_gate_acquire_timeouts_total",
			Help:      "Database lease requests that timed out.",
		},
	)

	PagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages fully drained.",
		},
	)
)

// StatusClass buckets an HTTP status code for the probes_total label.
func StatusClass(code int) string {
	switch {
	case code == 408:
		return "timeout"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}
