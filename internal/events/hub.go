// README: Per-entity publish/subscribe used for pickup trackers and collector dashboards.
package events

import (
	"context"
	"sync"
	"time"

	"kurs/internal/types"
)

type Kind string

const (
	KindPickupCreated    Kind = "pickup_created"
	KindPickupStatus     Kind = "pickup_status"
	KindPaymentCompleted Kind = "payment_completed"
)

// Event is a change notification for one entity; Status carries the new state.
type Event struct {
	EntityID types.ID  `json:"entity_id"`
	Kind     Kind      `json:"kind"`
	Status   string    `json:"status"`
	ActorID  types.ID  `json:"actor_id,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

const subscriberBuffer = 16

// Hub fans events out to in-process subscribers. Slow subscribers drop events
// rather than block publishers; trackers re-fetch state on reconnect.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[types.ID]map[uint64]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[types.ID]map[uint64]chan Event)}
}

// Subscribe returns a channel of events for id and a cancel func that closes it.
func (h *Hub) Subscribe(id types.ID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.nextID++
	subID := h.nextID
	if h.subs[id] == nil {
		h.subs[id] = make(map[uint64]chan Event)
	}
	h.subs[id][subID] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[id], subID)
			if len(h.subs[id]) == 0 {
				delete(h.subs, id)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Publish(_ context.Context, e Event) error {
	h.deliver(e)
	return nil
}

func (h *Hub) deliver(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[e.EntityID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers reports how many subscribers are attached to id.
func (h *Hub) Subscribers(id types.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[id])
}
