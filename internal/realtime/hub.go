package realtime

import (
	"context"
	"sync"

	"storefront/internal/models"
)

// Event is the wire shape pushed to live clients. Type doubles as the
// SSE event name.
type Event struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	EventNotification   = "notification"
	EventOrderUpdated   = "order-updated"
	EventAdminDashboard = "admin-dashboard-update"
)

// Room keys. A connection joins its user room at connect time, sellers
// and admins additionally join their role room, and tracking views join
// an order room on demand.
func UserRoom(userID string) string    { return "user:" + userID }
func OrderRoom(orderID string) string  { return "order:" + orderID }
func RoleRoom(role models.Role) string { return "role:" + string(role) }

// Hub manages live connections and room-scoped broadcasting. Membership
// is ephemeral: a dropped connection leaves all rooms and the server
// keeps no session history across disconnects.
type Hub struct {
	rooms map[string][]chan Event
	mu    sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string][]chan Event)}
}

// Subscribe joins a room and returns the member's event channel. The
// membership is removed and the channel closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, room string) chan Event {
	memberChan := make(chan Event, 10)

	h.mu.Lock()
	h.rooms[room] = append(h.rooms[room], memberChan)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(room, memberChan)
	}()

	return memberChan
}

// Publish broadcasts an event to every member of a room. Delivery is
// best-effort and at-most-once per connected session: a member whose
// buffer is full is skipped, and publishing to an empty room is a no-op.
//
// Sends happen under the read lock: channels are only closed under the
// write lock in remove, so a racing disconnect cannot close a channel
// mid-send. The sends never block, so holding the lock is safe.
func (h *Hub) Publish(room string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, memberChan := range h.rooms[room] {
		select {
		case memberChan <- ev:
		default:
			// Member is slow, drop rather than block the publisher.
		}
	}
}

// MemberCount returns the number of live members in a room.
func (h *Hub) MemberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) remove(room string, memberChan chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[room]
	for i, ch := range members {
		if ch == memberChan {
			h.rooms[room] = append(members[:i], members[i+1:]...)
			close(memberChan)
			break
		}
	}

	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}
