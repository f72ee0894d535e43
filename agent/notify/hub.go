package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Subscriber is the live client connection attached to a session. A gorilla
// websocket connection satisfies it.
type Subscriber interface {
	WriteJSON(v any) error
}

type orderUpdateEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type pastOrderEvent struct {
	Type        string `json:"type"`
	OrderNumber int    `json:"order_number"`
}

// Hub delivers order events to the one subscriber per session, if it is
// currently connected. Delivery is best-effort: no subscriber means a silent
// no-op, nothing is buffered or retried, and a failed write detaches the
// subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]Subscriber),
	}
}

// Attach registers the subscriber for a session, replacing any previous one.
func (h *Hub) Attach(sessionID string, sub Subscriber) {
	h.mu.Lock()
	h.subscribers[sessionID] = sub
	h.mu.Unlock()
}

func (h *Hub) Detach(sessionID string) {
	h.mu.Lock()
	delete(h.subscribers, sessionID)
	h.mu.Unlock()
}

func (h *Hub) PushOrderSnapshot(sessionID string, snapshot any) {
	h.push(sessionID, orderUpdateEvent{Type: "order_update", Data: snapshot})
}

func (h *Hub) PushFinalized(sessionID string, orderNumber int) {
	h.push(sessionID, pastOrderEvent{Type: "past_order", OrderNumber: orderNumber})
}

func (h *Hub) push(sessionID string, event any) {
	h.mu.RLock()
	sub, ok := h.subscribers[sessionID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	if err := sub.WriteJSON(event); err != nil {
		log.Debug().Err(err).Str("session_id", sessionID).Msg("drop dead subscriber")
		h.Detach(sessionID)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
