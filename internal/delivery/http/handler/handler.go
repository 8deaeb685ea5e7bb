package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/linkcheck-service/internal/delivery/http/response"
	"github.com/user/linkcheck-service/internal/entity"
)

const healthTimeout = 2 * time.Second

// ProgressSource exposes the state of the current run.
type ProgressSource interface {
	Progress() entity.Progress
}

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck names a dependency for the health report.
type HealthCheck struct {
	Name   string
	Pinger Pinger
}

type Handler struct {
	progress ProgressSource
	checks   []HealthCheck
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(progress ProgressSource, logger *zap.Logger, checks ...HealthCheck) *Handler {
	return &Handler{
		progress: progress,
		checks:   checks,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for _, c := range h.checks {
		if c.Pinger == nil {
			continue
		}
		if err := c.Pinger.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", c.Name), zap.Error(err))
			resp.Status = "degraded"
			resp.Checks[c.Name] = err.Error()
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	p := h.progress.Progress()
	if p.RunID == "" {
		h.writeJSONError(w, "No run has started yet", http.StatusNotFound)
		return
	}

	resp := response.ProgressResponse{
		RunID:       p.RunID,
		Cutoff:      p.Cutoff,
		Total:       p.Total,
		PageCount:   p.PageCount,
		CurrentPage: p.CurrentPage,
		Probed:      p.Probed,
		Persisted:   p.Persisted,
		Timeouts:    p.Timeouts,
		WorkerLimit: p.WorkerLimit,
		Throughput:  p.Throughput,
		StartedAt:   p.StartedAt,
		Elapsed:     h.now().Sub(p.StartedAt).Round(time.Millisecond).String(),
		Done:        p.Done,
	}
	if p.Total > 0 {
		resp.Percent = float64(p.Probed) * 100 / float64(p.Total)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
