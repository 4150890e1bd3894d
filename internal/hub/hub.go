// Package hub fans stored log entries out to live subscribers.
// Delivery is best effort: a subscriber that cannot keep up is dropped
// so one slow consumer never stalls ingestion or its peers.
package hub

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/evlog/evlog/internal/enrich"
)

// Subscriber is one live consumer. Entries arrive on C until the
// subscriber unsubscribes or falls behind, after which C is closed.
type Subscriber struct {
	ID string
	C  chan enrich.Entry

	mu     sync.Mutex
	closed bool
}

// send queues e without blocking. Reports false only when the buffer
// is full; a closed subscriber swallows the entry. The lock orders
// send against close so a concurrent unsubscribe cannot close C
// between the closed check and the channel send.
func (s *Subscriber) send(e enrich.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.C <- e:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.C)
	}
}

// Hub is the subscriber registry. The zero value is not usable; call New.
type Hub struct {
	subs       *xsync.Map[string, *Subscriber]
	bufferSize int
}

func New(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Hub{
		subs:       xsync.NewMap[string, *Subscriber](),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a new consumer and returns its handle.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID: uuid.NewString(),
		C:  make(chan enrich.Entry, h.bufferSize),
	}
	h.subs.Store(sub.ID, sub)
	return sub
}

// Unsubscribe removes the consumer and closes its channel. Safe to call
// more than once and after a slow-consumer eviction.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if s, ok := h.subs.LoadAndDelete(sub.ID); ok {
		s.close()
	}
}

// Publish delivers e to every current subscriber without blocking.
// Subscribers whose buffers are full are evicted.
func (h *Hub) Publish(e enrich.Entry) {
	h.subs.Range(func(id string, sub *Subscriber) bool {
		if !sub.send(e) {
			if s, ok := h.subs.LoadAndDelete(id); ok {
				s.close()
				log.Printf("[hub] dropped slow subscriber %s", id)
			}
		}
		return true
	})
}

// SubscriberCount reports the current number of live subscribers.
func (h *Hub) SubscriberCount() int {
	return h.subs.Size()
}

// Close evicts every subscriber. Publish after Close is a no-op.
func (h *Hub) Close() {
	h.subs.Range(func(id string, sub *Subscriber) bool {
		if s, ok := h.subs.LoadAndDelete(id); ok {
			s.close()
		}
		return true
	})
}
