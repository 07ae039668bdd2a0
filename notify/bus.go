// Package notify implements the push-notification channel as an in-process
// event bus. The engine emits fire-and-forget events (block deltas, task
// execution state, entity lifecycle) and transports subscribe to mirror them
// to clients.
package notify

import (
	"sync"
	"time"

	"github.com/lcamargo/loom/core"
)

// Event is one published notification.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// Bus is an in-process publish/subscribe notifier. Emit never blocks: events
// for a subscriber whose buffer is full are dropped.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]chan Event)}
}

// Subscribe registers a new subscriber and returns its id and channel. The
// channel is closed on Unsubscribe.
func (b *Bus) Subscribe(bufSize int) (string, <-chan Event) {
	id := core.NewID()
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Emit implements core.Notifier.
func (b *Bus) Emit(event string, payload any) {
	e := Event{
		ID:        core.NewID(),
		Name:      event,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}
