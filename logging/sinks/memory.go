package sinks

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Kurubik/snake/logging"
)

// MemorySink buffers routed events so tests can assert on what the server
// logged without scraping console output.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, detach(event))
	return nil
}

// Events returns every buffered event in delivery order.
func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// OfType returns the buffered events carrying the given type, in delivery
// order.
func (s *MemorySink) OfType(eventType logging.EventType) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []logging.Event
	for _, event := range s.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// LastOfType returns the most recent event of the given type.
func (s *MemorySink) LastOfType(eventType logging.EventType) (logging.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == eventType {
			return s.events[i], true
		}
	}
	return logging.Event{}, false
}

// ByActor returns the buffered events attributed to one actor, typically a
// player or room id.
func (s *MemorySink) ByActor(id string) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []logging.Event
	for _, event := range s.events {
		if event.Actor.ID == id {
			matched = append(matched, event)
		}
	}
	return matched
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}

// detach deep-copies the shared reference fields so later mutation by the
// publisher cannot reach buffered events.
func detach(event logging.Event) logging.Event {
	event.Targets = slices.Clone(event.Targets)
	if event.Extra != nil {
		event.Extra = maps.Clone(event.Extra)
	}
	return event
}
