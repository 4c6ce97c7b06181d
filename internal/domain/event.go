package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	// Device channel events.
	EventSessionOpened EventType = "device.session.opened"
	EventSessionClosed EventType = "device.session.closed"
	EventTapSent       EventType = "device.tap"

	// Frame capture events.
	EventFrameCaptured EventType = "device.capture"
	EventCaptureFailed EventType = "device.capture.failed"

	// Pilot loop events.
	EventPlacementSkipped EventType = "pilot.placement.skipped"
	EventCardPlaced       EventType = "pilot.card.placed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// SessionPayload is the payload of session lifecycle events.
type SessionPayload struct {
	Serial Serial `json:"serial"`
}

// TapPayload is the payload of EventTapSent.
type TapPayload struct {
	Serial Serial `json:"serial"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// CapturePayload is the payload of EventFrameCaptured and EventCaptureFailed.
type CapturePayload struct {
	Serial Serial `json:"serial"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PlacementPayload is the payload of pilot placement events.
type PlacementPayload struct {
	Card  int    `json:"card,omitempty"`
	Tile  Tile   `json:"tile"`
	Point *Point `json:"point,omitempty"`
	Rule  string `json:"rule,omitempty"`
}

// NewEvent builds an event with a JSON-encoded payload. A payload that fails
// to encode is dropped.
func NewEvent(typ EventType, sessionID string, payload any) Event {
	evt := Event{Type: typ, Timestamp: time.Now(), SessionID: sessionID}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			evt.Payload = data
		}
	}
	return evt
}
