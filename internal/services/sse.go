package services

import (
	"sync"
	"time"
)

// Event types pushed to dashboard clients.
const (
	EventMealSaved     = "meal.saved"
	EventMealQueued    = "meal.queued"
	EventSyncCompleted = "sync.completed"
	EventQueuePending  = "queue.pending"
)

// KioskEvent is one message on the live dashboard stream.
type KioskEvent struct {
	Type string      `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data,omitempty"`
}

// SSEHub fans events out to connected dashboard clients. Slow clients drop
// events instead of blocking publishers.
type SSEHub struct {
	clients map[string]chan KioskEvent
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan KioskEvent),
	}
}

// Subscribe registers clientID and returns its event channel.
func (h *SSEHub) Subscribe(clientID string) <-chan KioskEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[clientID]; ok {
		close(old)
	}
	ch := make(chan KioskEvent, 64)
	h.clients[clientID] = ch
	return ch
}

func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

func (h *SSEHub) Publish(eventType string, data interface{}) {
	event := KioskEvent{Type: eventType, At: time.Now(), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
