// Package events provides the in-process publish/subscribe hub that fans
// domain events out to connected dashboard streams. Producers (the CRUD
// services) publish named events; each open SSE or WebSocket connection
// subscribes to the event types it cares about. Delivery is best-effort and
// in-process only: a second server process has its own disjoint subscriber
// set, and disconnected clients receive no backfill.
package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event type vocabulary. These are wire-visible values: connected clients
// receive them in the "tipo" field of every frame.
const (
	TypeNewPrescription  = "nova_prescricao"
	TypeNewReminder      = "novo_alarme"
	TypeReminderUpdated  = "alarme_atualizado"
	TypeDeliveryRecorded = "entrega_realizada"
	TypeConnected        = "conectado"
)

// DomainEventTypes lists every event type a dashboard stream subscribes to.
// TypeConnected is excluded: it is synthetic, emitted once per stream on open.
var DomainEventTypes = []string{
	TypeNewPrescription,
	TypeNewReminder,
	TypeReminderUpdated,
	TypeDeliveryRecorded,
}

// Payload carries the event's data. Keys are merged into the wire frame next
// to "tipo", so producers use entity-named keys ("prescricao", "alarme",
// "entrega").
type Payload map[string]interface{}

// Handler receives one published event. Handlers run synchronously on the
// publisher's goroutine, in registration order; a slow handler delays the
// publisher, so stream handlers buffer internally and never block.
type Handler func(eventType string, payload Payload)

// Publisher is the producer-side interface. Services depend on this rather
// than the concrete Broadcaster so tests can record published events.
type Publisher interface {
	Publish(eventType string, payload Payload)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Broadcaster is the process-wide event hub. A single instance is created at
// startup and injected into every producer and stream handler; all state is
// guarded by the mutex so it is safe for concurrent publish and subscribe.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string][]subscription // event type -> ordered subscribers
	nextID uint64
	logger zerolog.Logger
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for every future publish of eventType and
// returns a cancel function that removes the registration. Cancel is
// idempotent and safe to call from any goroutine.
func (b *Broadcaster) Subscribe(eventType string, handler Handler) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.unsubscribe(eventType, id)
		})
	}
}

func (b *Broadcaster) unsubscribe(eventType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[eventType]
	for i, s := range subs {
		if s.id == id {
			b.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[eventType]) == 0 {
		delete(b.subs, eventType)
	}
}

// Publish synchronously delivers the event to every subscriber registered for
// eventType, in registration order. It never panics back to the caller: a
// failing subscriber is logged and skipped so one broken stream cannot fail
// the originating operation or starve the remaining subscribers.
func (b *Broadcaster) Publish(eventType string, payload Payload) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[eventType]))
	copy(subs, b.subs[eventType])
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, eventType, payload)
	}

	b.logger.Debug().
		Str("event", eventType).
		Int("subscribers", len(subs)).
		Msg("event published")
}

func (b *Broadcaster) deliver(s subscription, eventType string, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn().
				Str("event", eventType).
				Interface("panic", r).
				Msg("subscriber failed during delivery")
		}
	}()
	s.handler(eventType, payload)
}

// SubscriberCount returns the number of live subscriptions for eventType.
func (b *Broadcaster) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}
