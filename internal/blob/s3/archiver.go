package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

// multipartThreshold is the payload size above which session archives are
// uploaded in parts.
const multipartThreshold = minPartSize

const jsonlContentType = "application/x-ndjson"

// SessionArchiver implements domain.Archiver by serialising a session
// report to JSONL and uploading it through a BlobWriter.
//
// Each line is {"kind": ..., "data": ...}. The first line is the session
// header; decisions, jobs and events follow in that order.
type SessionArchiver struct {
	writer domain.BlobWriter
	prefix string
}

// NewSessionArchiver creates a SessionArchiver writing under prefix
// ("sessions" when empty).
func NewSessionArchiver(writer domain.BlobWriter, prefix string) *SessionArchiver {
	if prefix == "" {
		prefix = "sessions"
	}
	return &SessionArchiver{writer: writer, prefix: prefix}
}

type archiveRecord struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

type sessionHeader struct {
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Decisions int       `json:"decisions"`
	Jobs      int       `json:"jobs"`
	Events    int       `json:"events"`
}

// ArchiveSession uploads report and returns the object key it was written to.
func (a *SessionArchiver) ArchiveSession(ctx context.Context, report domain.SessionReport) (string, error) {
	if report.SessionID == "" {
		return "", fmt.Errorf("s3blob: archive session: %w: empty session id", domain.ErrValidation)
	}

	buf, err := marshalReport(report)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive session %s: %w", report.SessionID, err)
	}

	path := sessionPath(a.prefix, report)
	if int64(len(buf)) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive session %s: %w", report.SessionID, err)
	}
	return path, nil
}

// sessionPath partitions archives by the session's end date:
//
//	sessions/2026-10-15/<session_id>.jsonl
func sessionPath(prefix string, report domain.SessionReport) string {
	day := report.EndedAt
	if day.IsZero() {
		day = report.StartedAt
	}
	return fmt.Sprintf("%s/%s/%s.jsonl", prefix, day.UTC().Format("2006-01-02"), report.SessionID)
}

func marshalReport(report domain.SessionReport) ([]byte, error) {
	records := make([]archiveRecord, 0, 1+len(report.Decisions)+len(report.Jobs)+len(report.Events))
	records = append(records, archiveRecord{Kind: "session", Data: sessionHeader{
		SessionID: report.SessionID,
		Mode:      report.Mode,
		StartedAt: report.StartedAt,
		EndedAt:   report.EndedAt,
		Decisions: len(report.Decisions),
		Jobs:      len(report.Jobs),
		Events:    len(report.Events),
	}})
	for _, d := range report.Decisions {
		records = append(records, archiveRecord{Kind: "decision", Data: d})
	}
	for _, j := range report.Jobs {
		records = append(records, archiveRecord{Kind: "unwind_job", Data: j})
	}
	for _, e := range report.Events {
		records = append(records, archiveRecord{Kind: "event", Data: e})
	}
	return marshalJSONL(records)
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*SessionArchiver)(nil)
