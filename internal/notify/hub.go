package notify

import (
	"sync"
	"time"

	"mayhem-storefront/internal/domain"
)

// Notifier is the capability handed to the fulfillment pipeline. Delivery is
// fire-and-forget: rooms without listeners drop the message, and Emit never
// blocks the caller.
type Notifier interface {
	Emit(room, eventType string, payload map[string]any)
}

// Room namespaces. Admin is a single shared room; user and chat rooms are
// keyed per id and independent of each other.
const AdminRoom = "admin"

func UserRoom(userID string) string { return "user:" + userID }

func ChatRoom(customerID string) string { return "chat:" + customerID }

const subscriberBuffer = 16

// Hub is a room-keyed registry of listener channels.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[int]chan domain.Notification
	next  int
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[int]chan domain.Notification)}
}

// Subscribe attaches a listener to a room. The returned cancel func detaches
// it and closes the channel.
func (h *Hub) Subscribe(room string) (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, subscriberBuffer)

	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[int]chan domain.Notification)
	}
	id := h.next
	h.next++
	h.rooms[room][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.rooms[room]; ok {
			if _, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
				if len(subs) == 0 {
					delete(h.rooms, room)
				}
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Emit(room, eventType string, payload map[string]any) {
	n := domain.Notification{
		Room:      room,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.rooms[room] {
		select {
		case ch <- n:
		default:
			// slow listener, drop
		}
	}
}

// NopNotifier discards everything. Useful in tests.
type NopNotifier struct{}

func (NopNotifier) Emit(string, string, map[string]any) {}
