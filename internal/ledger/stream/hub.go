// Package stream pushes committed ledger events to live subscribers over
// WebSocket.
package stream

import (
	"context"
	"sync"

	"tipjar/internal/ledger/models"
)

const defaultSubscriberBuffer = 64

// Hub broadcasts events to subscribers. A subscriber whose buffer is full
// is disconnected rather than slowing the publisher down.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscription is one live listener. C is closed when the hub drops it.
type Subscription struct {
	hub  *Hub
	ch   chan *models.Event
	once sync.Once
}

func (s *Subscription) C() <-chan *models.Event {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Subscribe registers a listener with the given buffer size.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	sub := &Subscription{hub: h, ch: make(chan *models.Event, buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) Name() string { return "stream" }

// Publish never blocks and never fails.
func (h *Hub) Publish(_ context.Context, event *models.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			h.dropLocked(sub)
		}
	}
	return nil
}

// Subscribers returns the number of live listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		h.dropLocked(sub)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *Hub) dropLocked(sub *Subscription) {
	delete(h.subs, sub)
	sub.once.Do(func() { close(sub.ch) })
}
