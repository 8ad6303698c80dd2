package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

const recentDecisionCap = 500

// JournalService records tender decisions and unwind job transitions. With no
// stores configured it keeps decisions in memory only.
type JournalService struct {
	decisions domain.DecisionStore
	unwinds   domain.UnwindStore
	audit     domain.AuditStore
	logger    *slog.Logger

	mu     sync.Mutex
	recent []domain.TenderDecision
}

// NewJournalService creates a JournalService. Any store may be nil.
func NewJournalService(decisions domain.DecisionStore, unwinds domain.UnwindStore, audit domain.AuditStore, logger *slog.Logger) *JournalService {
	return &JournalService{
		decisions: decisions,
		unwinds:   unwinds,
		audit:     audit,
		logger:    logger.With(slog.String("component", "journal")),
	}
}

// RecordDecision keeps d and persists it. Store failures are logged.
func (s *JournalService) RecordDecision(ctx context.Context, d domain.TenderDecision) {
	s.mu.Lock()
	s.recent = append(s.recent, d)
	if over := len(s.recent) - recentDecisionCap; over > 0 {
		s.recent = append(s.recent[:0:0], s.recent[over:]...)
	}
	s.mu.Unlock()

	if s.decisions != nil {
		if err := s.decisions.Insert(ctx, d); err != nil {
			s.logger.ErrorContext(ctx, "persist decision",
				slog.Int64("tender_id", d.TenderID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logAudit(ctx, "tender.decision", map[string]any{
		"tender_id":      d.TenderID,
		"ticker":         d.Ticker,
		"accepted":       d.Accepted,
		"reason":         d.Reason,
		"reference_vwap": d.ReferenceVWAP,
		"confirmation":   string(d.Confirmation),
	})
}

// JobEvent persists the job's latest state.
func (s *JournalService) JobEvent(ctx context.Context, job domain.UnwindJob, typ domain.EventType, detail map[string]any) {
	if s.unwinds != nil {
		if err := s.unwinds.Upsert(ctx, job); err != nil {
			s.logger.ErrorContext(ctx, "persist unwind job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	entry := map[string]any{
		"job_id":    job.ID,
		"tender_id": job.TenderID,
		"ticker":    job.Ticker,
		"state":     string(job.State),
		"remaining": job.QuantityRemaining,
	}
	for k, v := range detail {
		entry[k] = v
	}
	s.logAudit(ctx, "unwind."+string(typ), entry)
}

func (s *JournalService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log", slog.String("event", event), slog.String("error", err.Error()))
	}
}

// Decisions returns the decisions recorded by this process, oldest first.
func (s *JournalService) Decisions() []domain.TenderDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TenderDecision, len(s.recent))
	copy(out, s.recent)
	return out
}

// RecentDecisions returns up to limit decisions, newest first, from the
// decision store when one is configured and from memory otherwise.
func (s *JournalService) RecentDecisions(ctx context.Context, limit int) ([]domain.TenderDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	if s.decisions != nil {
		return s.decisions.ListRecent(ctx, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(limit, len(s.recent))
	out := make([]domain.TenderDecision, 0, n)
	for i := len(s.recent) - 1; i >= len(s.recent)-n; i-- {
		out = append(out, s.recent[i])
	}
	return out, nil
}

// UnwindJobsSince lists persisted unwind jobs updated after since. Without
// an unwind store it returns nothing.
func (s *JournalService) UnwindJobsSince(ctx context.Context, since time.Time) ([]domain.UnwindJob, error) {
	if s.unwinds == nil {
		return nil, nil
	}
	return s.unwinds.ListSince(ctx, since)
}

// AuditLog returns up to limit audit entries, newest first. Without an audit
// store it returns nothing.
func (s *JournalService) AuditLog(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.List(ctx, limit)
}
