package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/alanyoungcy/tenderbot/internal/domain"
)

const (
	// EventChannel is the pub/sub channel and websocket topic for session events.
	EventChannel = "tenderbot:events"
	// EventStream is the Redis stream that keeps a bounded event log.
	EventStream = "tenderbot:events:log"

	defaultHistorySize = 1000
	notifyTimeout      = 10 * time.Second
)

// Broadcaster pushes a payload to live dashboard clients.
type Broadcaster interface {
	Broadcast(channel string, data []byte)
}

// EventNotifier forwards an event to human-facing channels.
type EventNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// EventService fans session events out to the signal bus, websocket clients
// and notifiers, and keeps the most recent ones in memory. Every sink is
// optional.
type EventService struct {
	bus      domain.SignalBus
	hub      Broadcaster
	notifier EventNotifier
	logger   *slog.Logger

	mu      sync.Mutex
	history []domain.Event
	limit   int
	wg      sync.WaitGroup
}

// NewEventService creates an EventService. historySize <= 0 uses a default.
func NewEventService(bus domain.SignalBus, hub Broadcaster, notifier EventNotifier, historySize int, logger *slog.Logger) *EventService {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &EventService{
		bus:      bus,
		hub:      hub,
		notifier: notifier,
		limit:    historySize,
		logger:   logger.With(slog.String("component", "events")),
	}
}

// Emit records e and forwards it to every configured sink. Sink failures are
// logged and never returned.
func (s *EventService) Emit(ctx context.Context, e domain.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	s.mu.Lock()
	s.history = append(s.history, e)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
	s.mu.Unlock()

	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal event", slog.String("type", string(e.Type)), slog.String("error", err.Error()))
		return
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, EventChannel, payload); err != nil {
			s.logger.WarnContext(ctx, "publish event", slog.String("error", err.Error()))
		}
		if err := s.bus.StreamAppend(ctx, EventStream, payload); err != nil {
			s.logger.WarnContext(ctx, "append event stream", slog.String("error", err.Error()))
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(EventChannel, payload)
	}
	if s.notifier != nil {
		s.notify(ctx, e)
	}
}

// notify runs off the caller's goroutine so a slow webhook never stalls a
// trading cycle.
func (s *EventService) notify(ctx context.Context, e domain.Event) {
	title, message := describe(e)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(nctx, string(e.Type), title, message); err != nil {
			s.logger.WarnContext(nctx, "notify event", slog.String("type", string(e.Type)), slog.String("error", err.Error()))
		}
	}()
}

// Flush waits for in-flight notifications.
func (s *EventService) Flush() {
	s.wg.Wait()
}

// JobEvent adapts unwind job transitions into session events.
func (s *EventService) JobEvent(ctx context.Context, job domain.UnwindJob, typ domain.EventType, detail map[string]any) {
	d := map[string]any{
		"state":     string(job.State),
		"action":    string(job.Action),
		"remaining": job.QuantityRemaining,
		"tactic":    string(job.Tactic),
	}
	maps.Copy(d, detail)
	s.Emit(ctx, domain.Event{
		Type:     typ,
		TenderID: job.TenderID,
		JobID:    job.ID,
		Ticker:   job.Ticker,
		Detail:   d,
		Time:     job.UpdatedAt,
	})
}

// History returns the retained events, oldest first.
func (s *EventService) History() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.history))
	copy(out, s.history)
	return out
}

func describe(e domain.Event) (string, string) {
	title := fmt.Sprintf("tenderbot: %s", e.Type)
	msg := ""
	if e.Ticker != "" {
		msg = e.Ticker
	}
	if e.TenderID != 0 {
		msg += fmt.Sprintf(" tender=%d", e.TenderID)
	}
	for _, k := range []string{"action", "quantity", "price", "reference_vwap", "remaining", "last", "reason", "errors"} {
		if v, ok := e.Detail[k]; ok && v != "" {
			msg += fmt.Sprintf(" %s=%v", k, v)
		}
	}
	return title, msg
}
