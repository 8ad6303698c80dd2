package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// JobLister lists unwind jobs. *unwind.Scheduler satisfies it.
type JobLister interface {
	Snapshot() []domain.UnwindJob
}

// ArchiveService assembles the session report at session end and hands it
// to the configured archiver.
type ArchiveService struct {
	archiver  domain.Archiver
	journal   *JournalService
	events    *EventService
	jobs      JobLister
	sessionID string
	mode      string
	startedAt time.Time
	logger    *slog.Logger
}

// NewArchiveService creates an ArchiveService for one session.
func NewArchiveService(archiver domain.Archiver, journal *JournalService, events *EventService, jobs JobLister, sessionID, mode string, logger *slog.Logger) *ArchiveService {
	return &ArchiveService{
		archiver:  archiver,
		journal:   journal,
		events:    events,
		jobs:      jobs,
		sessionID: sessionID,
		mode:      mode,
		startedAt: time.Now().UTC(),
		logger:    logger.With(slog.String("component", "archive")),
	}
}

// Report builds the report for everything recorded so far.
func (s *ArchiveService) Report() domain.SessionReport {
	r := domain.SessionReport{
		SessionID: s.sessionID,
		Mode:      s.mode,
		StartedAt: s.startedAt,
		EndedAt:   time.Now().UTC(),
	}
	if s.journal != nil {
		r.Decisions = s.journal.Decisions()
	}
	if s.jobs != nil {
		r.Jobs = s.jobs.Snapshot()
	}
	if s.events != nil {
		r.Events = s.events.History()
	}
	return r
}

// Archive uploads the session report. Without an archiver it only logs a
// summary.
func (s *ArchiveService) Archive(ctx context.Context) error {
	r := s.Report()
	log := s.logger.With(
		slog.String("session_id", r.SessionID),
		slog.Int("decisions", len(r.Decisions)),
		slog.Int("jobs", len(r.Jobs)),
		slog.Int("events", len(r.Events)),
	)
	if s.archiver == nil {
		log.InfoContext(ctx, "session finished, archive disabled")
		return nil
	}

	path, err := s.archiver.ArchiveSession(ctx, r)
	if err != nil {
		return fmt.Errorf("archive_service: %w", err)
	}
	log.InfoContext(ctx, "session archived", slog.String("path", path))
	return nil
}
