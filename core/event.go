package core

import "time"

// TransitionEvent is emitted on every session state transition for
// observability. Consumers (logging, metrics collectors) subscribe through an
// EventSink; the engine never blocks on a slow sink implementation.
type TransitionEvent struct {
	SessionID string    `json:"sessionId"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Agent     string    `json:"agent"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives transition events.
type EventSink interface {
	Emit(ev TransitionEvent)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ev TransitionEvent)

// Emit calls the underlying function.
func (f EventSinkFunc) Emit(ev TransitionEvent) { f(ev) }

// NoOpSink discards all events.
type NoOpSink struct{}

// Emit discards the event.
func (NoOpSink) Emit(TransitionEvent) {}

var (
	_ EventSink = (EventSinkFunc)(nil)
	_ EventSink = (*NoOpSink)(nil)
)
