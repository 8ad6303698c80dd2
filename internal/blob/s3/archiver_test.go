package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
	"github.com/stretchr/testify/require"
)

type upload struct {
	path        string
	body        []byte
	contentType string
	multipart   bool
	partSize    int64
}

type fakeWriter struct {
	uploads []upload
	err     error
}

func (f *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	b, _ := io.ReadAll(data)
	f.uploads = append(f.uploads, upload{path: path, body: b, contentType: contentType})
	return nil
}

func (f *fakeWriter) PutMultipart(_ context.Context, path string, data io.Reader, partSize int64) error {
	if f.err != nil {
		return f.err
	}
	b, _ := io.ReadAll(data)
	f.uploads = append(f.uploads, upload{path: path, body: b, multipart: true, partSize: partSize})
	return nil
}

func sampleReport() domain.SessionReport {
	start := time.Date(2026, 10, 15, 13, 0, 0, 0, time.UTC)
	return domain.SessionReport{
		SessionID: "sess-1",
		Mode:      "paper",
		StartedAt: start,
		EndedAt:   start.Add(5 * time.Minute),
		Decisions: []domain.TenderDecision{
			{TenderID: 7, Ticker: "CRZY", Action: domain.ActionBuy, Quantity: 5000, Price: 10, Accepted: true},
		},
		Jobs: []domain.UnwindJob{
			{ID: "job-1", TenderID: 7, Ticker: "CRZY", Action: domain.ActionSell, Quantity: 5000},
		},
		Events: []domain.Event{
			{Type: domain.EventTenderAccepted, TenderID: 7, Ticker: "CRZY", Time: start},
			{Type: domain.EventSessionEnd, Time: start.Add(5 * time.Minute)},
		},
	}
}

func TestArchiveSessionWritesJSONL(t *testing.T) {
	w := &fakeWriter{}
	a := NewSessionArchiver(w, "")

	path, err := a.ArchiveSession(context.Background(), sampleReport())
	require.NoError(t, err)
	require.Equal(t, "sessions/2026-10-15/sess-1.jsonl", path)
	require.Len(t, w.uploads, 1)

	up := w.uploads[0]
	require.False(t, up.multipart)
	require.Equal(t, "application/x-ndjson", up.contentType)

	var kinds []string
	sc := bufio.NewScanner(bytes.NewReader(up.body))
	for sc.Scan() {
		var rec struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		kinds = append(kinds, rec.Kind)
	}
	require.Equal(t, []string{"session", "decision", "unwind_job", "event", "event"}, kinds)
	require.Contains(t, string(up.body), `"session_id":"sess-1"`)
}

func TestArchiveSessionLargeReportUsesMultipart(t *testing.T) {
	w := &fakeWriter{}
	a := NewSessionArchiver(w, "archive")

	report := sampleReport()
	pad := strings.Repeat("x", 1024)
	for i := 0; i < 6*1024; i++ {
		report.Events = append(report.Events, domain.Event{
			Type:   domain.EventUnwindBatch,
			Detail: map[string]any{"pad": pad},
		})
	}

	path, err := a.ArchiveSession(context.Background(), report)
	require.NoError(t, err)
	require.Equal(t, "archive/2026-10-15/sess-1.jsonl", path)
	require.Len(t, w.uploads, 1)
	require.True(t, w.uploads[0].multipart)
	require.Equal(t, minPartSize, w.uploads[0].partSize)
}

func TestArchiveSessionErrors(t *testing.T) {
	a := NewSessionArchiver(&fakeWriter{}, "")
	_, err := a.ArchiveSession(context.Background(), domain.SessionReport{})
	require.ErrorIs(t, err, domain.ErrValidation)

	boom := errors.New("bucket gone")
	a = NewSessionArchiver(&fakeWriter{err: boom}, "")
	_, err = a.ArchiveSession(context.Background(), sampleReport())
	require.ErrorIs(t, err, boom)
}

func TestNormaliseEndpoint(t *testing.T) {
	require.Equal(t, "https://minio.local:9000", normaliseEndpoint("minio.local:9000", true))
	require.Equal(t, "http://minio.local:9000", normaliseEndpoint("minio.local:9000", false))
	require.Equal(t, "http://already", normaliseEndpoint("http://already", true))
}
