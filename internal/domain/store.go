package domain

import (
	"context"
	"time"
)

// DecisionStore persists tender decisions.
type DecisionStore interface {
	Insert(ctx context.Context, d TenderDecision) error
	ListRecent(ctx context.Context, limit int) ([]TenderDecision, error)
}

// UnwindStore persists unwind jobs and their state transitions.
type UnwindStore interface {
	Upsert(ctx context.Context, job UnwindJob) error
	ListSince(ctx context.Context, since time.Time) ([]UnwindJob, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}
