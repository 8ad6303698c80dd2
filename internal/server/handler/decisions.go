package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// DecisionSource returns recent tender decisions, newest first.
type DecisionSource interface {
	RecentDecisions(ctx context.Context, limit int) ([]domain.TenderDecision, error)
}

// EventSource returns the retained session events, oldest first.
type EventSource interface {
	History() []domain.Event
}

// JournalHandler serves the decision and event history.
type JournalHandler struct {
	decisions DecisionSource
	events    EventSource
	logger    *slog.Logger
}

// NewJournalHandler creates a JournalHandler.
func NewJournalHandler(decisions DecisionSource, events EventSource, logger *slog.Logger) *JournalHandler {
	return &JournalHandler{decisions: decisions, events: events, logger: logger}
}

type decisionsResponse struct {
	Decisions []domain.TenderDecision `json:"decisions"`
}

// ListDecisions returns recent tender decisions.
// GET /api/decisions?limit=50
func (h *JournalHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	decisions, err := h.decisions.RecentDecisions(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list decisions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list decisions")
		return
	}
	if decisions == nil {
		decisions = []domain.TenderDecision{}
	}
	writeJSON(w, http.StatusOK, decisionsResponse{Decisions: decisions})
}

type eventsResponse struct {
	Events []domain.Event `json:"events"`
}

// ListEvents returns the newest retained session events, oldest first.
// GET /api/events?limit=50
func (h *JournalHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	events := h.events.History()
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}
