package domain

import (
	"context"
	"time"
)

// SessionReport is everything worth keeping about one finished session.
type SessionReport struct {
	SessionID string
	Mode      string
	StartedAt time.Time
	EndedAt   time.Time
	Decisions []TenderDecision
	Jobs      []UnwindJob
	Events    []Event
}

// Archiver writes a session report to long-term storage and returns where
// it was written.
type Archiver interface {
	ArchiveSession(ctx context.Context, report SessionReport) (string, error)
}
