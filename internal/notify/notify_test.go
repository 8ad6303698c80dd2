package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	s.titles = append(s.titles, title)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, discard())

	require.NoError(t, n.Notify(context.Background(), "unwind_batch", "batch", ""))
	require.NoError(t, n.Notify(context.Background(), "stop_loss", "stop", ""))
	require.Equal(t, []string{"stop"}, s.titles)

	all := NewNotifier([]Sender{s}, []string{"*"}, discard())
	require.NoError(t, all.Notify(context.Background(), "unwind_batch", "batch", ""))
	require.Equal(t, []string{"stop", "batch"}, s.titles)
}

func TestNotifierKeepsSendingAfterFailure(t *testing.T) {
	boom := errors.New("down")
	bad := &recordingSender{name: "bad", err: boom}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, []string{"session_end"}, discard())

	err := n.Notify(context.Background(), "session_end", "done", "")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "bad")
	require.Equal(t, []string{"done"}, good.titles)
}

func TestTelegramSenderPostsMessage(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "42")
	s.baseURL = srv.URL
	require.NoError(t, s.Send(context.Background(), "tenderbot: stop_loss", "CRZY"))
	require.Equal(t, "/bottok/sendMessage", path)
	require.Equal(t, "42", got["chat_id"])
	require.Equal(t, "*tenderbot: stop_loss*\nCRZY", got["text"])
}

func TestDiscordSenderReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}
