package events

import (
	"time"
)

// Event is one immutable fact about a kit, location or reservation. Streams
// are keyed by entity identifier and versioned per stream.
type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

// Handler consumes events it subscribed to. Handlers are invoked
// synchronously in append order; a handler error is logged by the store, not
// propagated to the appender.
type Handler func(event Event) error

// EventStore is the feed the status board and alerting collaborators
// subscribe to. The store is a projection source, never authoritative state.
type EventStore interface {
	Append(streamID string, event Event) error
	Read(streamID string, fromVersion int) ([]Event, error)
	ReadAll(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler Handler)
}

// BaseEvent is the standard Event implementation.
type BaseEvent struct {
	EventType    string
	Stream       string
	EventData    interface{}
	EventTime    time.Time
	EventVersion int
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) Data() interface{} {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e BaseEvent) Version() int {
	return e.EventVersion
}

// NewEvent creates an unversioned event; the store assigns the stream
// version on append.
func NewEvent(eventType, streamID string, data interface{}) Event {
	return BaseEvent{
		EventType: eventType,
		Stream:    streamID,
		EventData: data,
		EventTime: time.Now().UTC(),
	}
}
