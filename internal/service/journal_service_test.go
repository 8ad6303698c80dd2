package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

type memDecisionStore struct {
	mu   sync.Mutex
	rows []domain.TenderDecision
	fail bool
}

func (s *memDecisionStore) Insert(_ context.Context, d domain.TenderDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("db down")
	}
	s.rows = append(s.rows, d)
	return nil
}

func (s *memDecisionStore) ListRecent(_ context.Context, limit int) ([]domain.TenderDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TenderDecision
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.rows[i])
	}
	return out, nil
}

type memUnwindStore struct {
	mu   sync.Mutex
	jobs map[string]domain.UnwindJob
}

func (s *memUnwindStore) Upsert(_ context.Context, job domain.UnwindJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *memUnwindStore) ListSince(_ context.Context, since time.Time) ([]domain.UnwindJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.UnwindJob
	for _, j := range s.jobs {
		if !j.UpdatedAt.Before(since) {
			out = append(out, j)
		}
	}
	return out, nil
}

type memAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.AuditEntry
	for i := len(a.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, domain.AuditEntry{ID: int64(i + 1), Event: a.events[i]})
	}
	return out, nil
}

func TestJournalPersistsDecisionsAndJobs(t *testing.T) {
	decisions := &memDecisionStore{}
	unwinds := &memUnwindStore{jobs: map[string]domain.UnwindJob{}}
	audit := &memAudit{}
	j := NewJournalService(decisions, unwinds, audit, slog.Default())
	ctx := context.Background()

	j.RecordDecision(ctx, domain.TenderDecision{TenderID: 1, Accepted: true})
	j.RecordDecision(ctx, domain.TenderDecision{TenderID: 2})
	now := time.Now().UTC()
	j.JobEvent(ctx, domain.UnwindJob{ID: "a", State: domain.UnwindStateClosed, UpdatedAt: now}, domain.EventUnwindClosed, nil)

	recent, err := j.RecentDecisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, int64(2), recent[0].TenderID)

	jobs, err := j.UnwindJobsSince(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, []string{"tender.decision", "tender.decision", "unwind.unwind_closed"}, audit.events)

	entries, err := j.AuditLog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "unwind.unwind_closed", entries[0].Event)
}

func TestJournalInMemoryFallback(t *testing.T) {
	j := NewJournalService(nil, nil, nil, slog.Default())
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		j.RecordDecision(ctx, domain.TenderDecision{TenderID: int64(i)})
	}

	recent, err := j.RecentDecisions(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2}, []int64{recent[0].TenderID, recent[1].TenderID})
	require.Len(t, j.Decisions(), 3)

	jobs, err := j.UnwindJobsSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Empty(t, jobs)

	entries, err := j.AuditLog(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestJournalKeepsDecisionWhenStoreFails(t *testing.T) {
	j := NewJournalService(&memDecisionStore{fail: true}, nil, nil, slog.Default())
	j.RecordDecision(context.Background(), domain.TenderDecision{TenderID: 5})
	require.Len(t, j.Decisions(), 1)
}
