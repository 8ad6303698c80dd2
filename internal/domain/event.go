package domain

import "time"

// EventType classifies session events.
type EventType string

const (
	EventTenderAccepted  EventType = "tender_accepted"
	EventTenderDeclined  EventType = "tender_declined"
	EventTenderSkipped   EventType = "tender_skipped"
	EventUnwindStarted   EventType = "unwind_started"
	EventUnwindBatch     EventType = "unwind_batch"
	EventStopLoss        EventType = "stop_loss"
	EventForceLiquidated EventType = "force_liquidated"
	EventUnwindClosed    EventType = "unwind_closed"
	EventUnwindFailed    EventType = "unwind_failed"
	EventSquareOff       EventType = "square_off"
	EventSessionEnd      EventType = "session_end"
)

// Event is a single entry of the session event stream.
type Event struct {
	Type     EventType      `json:"type"`
	TenderID int64          `json:"tender_id,omitempty"`
	JobID    string         `json:"job_id,omitempty"`
	Ticker   string         `json:"ticker,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	Time     time.Time      `json:"time"`
}
