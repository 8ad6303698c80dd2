package handler

import (
	"net/http"

	"github.com/alanyoungcy/tenderbot/internal/domain"
	"github.com/alanyoungcy/tenderbot/internal/session"
)

// SessionView exposes the controller's latest state.
type SessionView interface {
	Status() session.Status
}

// JobView exposes the unwind scheduler's task set.
type JobView interface {
	Snapshot() []domain.UnwindJob
	Running() int
	Failed() int
}

// StatusHandler serves the session status for dashboards.
type StatusHandler struct {
	session SessionView
	jobs    JobView
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(s SessionView, jobs JobView) *StatusHandler {
	return &StatusHandler{session: s, jobs: jobs}
}

type statusResponse struct {
	Session session.Status     `json:"session"`
	Running int                `json:"running_tasks"`
	Failed  int                `json:"failed_tasks"`
	Jobs    []domain.UnwindJob `json:"jobs"`
}

// GetStatus responds with tick state and every unwind job.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.Snapshot()
	if jobs == nil {
		jobs = []domain.UnwindJob{}
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Session: h.session.Status(),
		Running: h.jobs.Running(),
		Failed:  h.jobs.Failed(),
		Jobs:    jobs,
	})
}
