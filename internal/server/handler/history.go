package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// HistorySource reads what the stores have persisted.
type HistorySource interface {
	UnwindJobsSince(ctx context.Context, since time.Time) ([]domain.UnwindJob, error)
	AuditLog(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// HistoryHandler serves persisted unwind jobs and the audit log.
type HistoryHandler struct {
	source HistorySource
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(source HistorySource, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{source: source, logger: logger}
}

type jobHistoryResponse struct {
	Since time.Time          `json:"since"`
	Jobs  []domain.UnwindJob `json:"jobs"`
}

// ListJobs returns unwind jobs updated at or after ?since= (RFC 3339),
// defaulting to the last 24 hours.
// GET /api/jobs/history?since=2026-01-02T15:04:05Z
func (h *HistoryHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}

	jobs, err := h.source.UnwindJobsSince(r.Context(), since)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list unwind jobs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list unwind jobs")
		return
	}
	if jobs == nil {
		jobs = []domain.UnwindJob{}
	}
	writeJSON(w, http.StatusOK, jobHistoryResponse{Since: since, Jobs: jobs})
}

type auditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// ListAudit returns the newest audit log entries.
// GET /api/audit?limit=50
func (h *HistoryHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	entries, err := h.source.AuditLog(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, auditResponse{Entries: entries})
}
