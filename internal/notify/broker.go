// Package notify fans session lifecycle events out to subscribed clients.
// The engine publishes here; sound and toast behavior belongs to whoever is
// listening on the other end of the stream.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	EventSessionEnded = "session_ended"

	HeartbeatInterval = 30 * time.Second
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Subscriber struct {
	OwnerID string
	Events  chan Event
	Done    chan struct{}
}

// Broker is an in-process publish/subscribe hub keyed by owner. Slow
// subscribers drop events rather than block the publisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]bool // ownerID -> set
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]map[*Subscriber]bool),
	}
}

func (b *Broker) Subscribe(ownerID string) *Subscriber {
	sub := &Subscriber{
		OwnerID: ownerID,
		Events:  make(chan Event, 16),
		Done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.subscribers[ownerID] == nil {
		b.subscribers[ownerID] = make(map[*Subscriber]bool)
	}
	b.subscribers[ownerID][sub] = true
	count := len(b.subscribers[ownerID])
	b.mu.Unlock()

	log.Debug().Str("ownerId", ownerID).Int("subscribers", count).Msg("notify subscriber added")
	return sub
}

func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[sub.OwnerID]
	if !ok || !subs[sub] {
		return
	}
	delete(subs, sub)
	close(sub.Done)
	if len(subs) == 0 {
		delete(b.subscribers, sub.OwnerID)
	}
}

func (b *Broker) Publish(ownerID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers[ownerID] {
		select {
		case sub.Events <- event:
		default:
			log.Warn().Str("ownerId", ownerID).Str("event", event.Type).Msg("notify subscriber lagging, event dropped")
		}
	}
}
