package services

import (
	"log"
	"sync"

	"peerhelp/internal/core/domain"
)

// ============================================================
// SSE Hub + Notify Service
// ============================================================

// SSEClient represents a connected SSE client
type SSEClient struct {
	ID      string
	UserID  uint
	Channel chan domain.Event
	IsAdmin bool // admin clients additionally receive every lifecycle event
}

// SSEHub manages all SSE connections
type SSEHub struct {
	mu      sync.RWMutex
	clients map[string]*SSEClient
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]*SSEClient),
	}
}

// Register adds a new SSE client
func (h *SSEHub) Register(client *SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("📡 SSE client registered: %s (user=%d, admin=%v) | total=%d",
		client.ID, client.UserID, client.IsAdmin, len(h.clients))
}

// Unregister removes an SSE client
func (h *SSEHub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Printf("📡 SSE client unregistered: %s | total=%d", clientID, len(h.clients))
	}
}

// SendToUser sends an event to a specific user's connections
func (h *SSEHub) SendToUser(userID uint, event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Channel <- event:
			default:
				// Client channel full, skip
				log.Printf("⚠️ SSE channel full for client %s, skipping", client.ID)
			}
		}
	}
}

// BroadcastToAdmins sends an event to every admin client
func (h *SSEHub) BroadcastToAdmins(event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.IsAdmin {
			select {
			case client.Channel <- event:
			default:
			}
		}
	}
}

// GetClientCount returns the number of connected clients
func (h *SSEHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ============================================================
// NotifyService: fan-out of lifecycle events
// ============================================================

// NotifyService delivers help lifecycle events over SSE. Emission happens
// after the owning DB transaction commits; a dropped event never rolls back
// state.
type NotifyService struct {
	Hub *SSEHub
}

// NewNotifyService creates a new notification service
func NewNotifyService() *NotifyService {
	return &NotifyService{Hub: NewSSEHub()}
}

// Emit delivers one event to its addressee and mirrors it to admin clients
func (n *NotifyService) Emit(event domain.Event) {
	n.Hub.SendToUser(event.UserID, event)
	n.Hub.BroadcastToAdmins(event)
}

// EmitPair delivers the same lifecycle occurrence to both parties of a
// transaction
func (n *NotifyService) EmitPair(name domain.EventName, txID string, senderID, receiverID uint, data map[string]interface{}) {
	n.Emit(domain.Event{Name: name, UserID: senderID, TxID: txID, Data: data})
	n.Emit(domain.Event{Name: name, UserID: receiverID, TxID: txID, Data: data})
}
