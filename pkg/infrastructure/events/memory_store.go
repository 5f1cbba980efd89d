package events

import (
	"fmt"
	"log/slog"
	"sync"
)

// InMemoryEventStore keeps streams in memory and notifies subscribers
// synchronously, preserving append order per stream.
type InMemoryEventStore struct {
	mutex       sync.RWMutex
	streams     map[string][]Event
	allEvents   []Event
	subscribers map[string][]Handler
	log         *slog.Logger
}

// NewInMemoryEventStore creates an empty event store.
func NewInMemoryEventStore(log *slog.Logger) *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]Handler),
		log:         log,
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)

// Append versions the event within its stream and notifies subscribers.
func (s *InMemoryEventStore) Append(streamID string, event Event) error {
	s.mutex.Lock()

	versioned := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[streamID]) + 1,
	}

	s.streams[streamID] = append(s.streams[streamID], versioned)
	s.allEvents = append(s.allEvents, versioned)

	handlers := append([]Handler(nil), s.subscribers[versioned.EventType]...)
	s.mutex.Unlock()

	// Handlers run outside the lock so a subscriber can read the store.
	for _, handler := range handlers {
		if err := handler(versioned); err != nil {
			s.log.Error("event handler failed",
				slog.String("event", versioned.EventType),
				slog.String("stream", streamID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Read returns a stream's events starting at fromVersion (1-based).
func (s *InMemoryEventStore) Read(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stream, ok := s.streams[streamID]
	if !ok {
		return nil, fmt.Errorf("unknown event stream %s", streamID)
	}
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(stream) {
		return []Event{}, nil
	}

	out := make([]Event, len(stream)-fromVersion+1)
	copy(out, stream[fromVersion-1:])
	return out, nil
}

// ReadAll returns every event from a global position (0-based).
func (s *InMemoryEventStore) ReadAll(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}

	out := make([]Event, len(s.allEvents)-fromPosition)
	copy(out, s.allEvents[fromPosition:])
	return out, nil
}

// Subscribe registers a handler for the given event types.
func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler Handler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}
}
