package stream

import (
	"sync"

	"github.com/yourorg/stockledger/internal/domain"
)

const subscriberBuffer = 16

// Hub fans committed audit entries out to live subscribers. Publishing
// never blocks: a subscriber that cannot keep up misses entries rather
// than stalling request handling.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan domain.AuditLog
	next int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan domain.AuditLog)}
}

// Subscribe registers a listener. The returned cancel func must be
// called to release the subscription; the channel is closed by it.
func (h *Hub) Subscribe() (<-chan domain.AuditLog, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan domain.AuditLog, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the entry to every subscriber with room in its
// buffer.
func (h *Hub) Publish(entry domain.AuditLog) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- entry:
		default:
		}
	}
}
