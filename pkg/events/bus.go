package events

import (
	"sync"

	"github.com/jscyril/vibestream/api"
)

// DefaultBuffer is the per-subscriber channel capacity
const DefaultBuffer = 64

// allTypes is what SubscribeAll listens to
var allTypes = []api.EventType{
	api.EventTrackStarted,
	api.EventPositionUpdate,
	api.EventDurationKnown,
	api.EventTrackEnded,
	api.EventError,
	api.EventStateChange,
}

// EventBus handles event distribution using channels
type EventBus struct {
	subscribers map[api.EventType][]chan api.AudioEvent
	buffer      int
	closed      bool
	mu          sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return NewEventBusSize(DefaultBuffer)
}

// NewEventBusSize creates an event bus whose subscriber channels hold size events
func NewEventBusSize(size int) *EventBus {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &EventBus{
		subscribers: make(map[api.EventType][]chan api.AudioEvent),
		buffer:      size,
	}
}

// Subscribe returns a channel receiving the given event types and a cancel
// func that detaches and closes it. Cancel is safe to call more than once.
func (b *EventBus) Subscribe(types ...api.EventType) (<-chan api.AudioEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.AudioEvent, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(ch) })
	}
}

// SubscribeAll subscribes to every known event type
func (b *EventBus) SubscribeAll() (<-chan api.AudioEvent, func()) {
	return b.Subscribe(allTypes...)
}

// Publish broadcasts an event to all subscribers of that event type
func (b *EventBus) Publish(event api.AudioEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			// Channel full, skip to prevent blocking
		}
	}
}

// Subscribers returns the number of distinct subscriber channels
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[chan api.AudioEvent]struct{})
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			seen[ch] = struct{}{}
		}
	}
	return len(seen)
}

func (b *EventBus) unsubscribe(ch chan api.AudioEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	found := false
	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				found = true
				break
			}
		}
		if len(b.subscribers[eventType]) == 0 {
			delete(b.subscribers, eventType)
		}
	}
	// Close already closed it when the bus shut down
	if found {
		close(ch)
	}
}

// Close closes all subscriber channels
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	closed := make(map[chan api.AudioEvent]bool)
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			if !closed[ch] {
				close(ch)
				closed[ch] = true
			}
		}
	}
	b.subscribers = make(map[api.EventType][]chan api.AudioEvent)
	b.closed = true
}
