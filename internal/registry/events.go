package registry

import (
	"sync"

	"github.com/paulmach/orb/geojson"
)

// Action names a registry change.
type Action string

const (
	ActionAdded     Action = "added"
	ActionRemoved   Action = "removed"
	ActionShown     Action = "shown"
	ActionHidden    Action = "hidden"
	ActionRestyled  Action = "restyled"
	ActionCleared   Action = "cleared"
	ActionViewport  Action = "viewport"
	ActionActivated Action = "activated"
)

// Event describes one registry change. Properties is set for
// ActionActivated only.
type Event struct {
	Action     Action             `json:"action"`
	Layer      string             `json:"layer,omitempty"`
	Name       string             `json:"name,omitempty"`
	Properties geojson.Properties `json:"properties,omitempty"`
}

// EventBus is a fan-out pub/sub for registry events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers without blocking. A subscriber
// whose buffer is full misses the event.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}
