package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubSendsStatusThenBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(func() any { return map[string]int{"tick": 7} }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	typ, first, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	var status struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(first, &status))
	require.Equal(t, "status", status.Type)
	require.Equal(t, 7, status.Payload["tick"])

	hub.Broadcast("tenderbot:events", []byte(`{"type":"tender_accepted"}`))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"tender_accepted"}`, string(msg))
	require.Equal(t, 1, hub.Clients())
}

func TestSubscriptionMatching(t *testing.T) {
	c := &client{subs: map[string]bool{"tenderbot:*": true}}
	require.True(t, c.isSubscribed("tenderbot:events"))
	require.False(t, c.isSubscribed("other"))

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"tenderbot:*"}})
	require.False(t, c.isSubscribed("tenderbot:events"))

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{AllChannels}})
	require.True(t, c.isSubscribed("anything"))
}
