package websocket

import (
	"log/slog"
	"sync"
	"time"
)

// MessageToSend defines the structure for sending a message to a specific user.
type MessageToSend struct {
	TargetUserID int64
	Payload      []byte
}

// Hub maintains the set of active clients and fans messages out to them.
type Hub struct {
	// Registered clients. Maps user ID to a set of active client connections.
	Clients map[int64]map[*Client]bool

	// Channel for sending messages to specific users.
	SendDirect chan *MessageToSend

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	logger *slog.Logger

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		SendDirect: make(chan *MessageToSend, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[int64]map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	h.logger.Info("websocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.UserID]; !ok {
				h.Clients[client.UserID] = make(map[*Client]bool)
			}
			h.Clients[client.UserID][client] = true
			h.logger.Debug("websocket client registered",
				"user_id", client.UserID,
				"connections", len(h.Clients[client.UserID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if userClients, ok := h.Clients[client.UserID]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					close(client.Send)
					if len(userClients) == 0 {
						delete(h.Clients, client.UserID)
					}
					h.logger.Debug("websocket client unregistered",
						"user_id", client.UserID,
						"connections", len(userClients))
				}
			}
			h.mu.Unlock()

		case directMessage := <-h.SendDirect:
			h.mu.RLock()
			if userClients, ok := h.Clients[directMessage.TargetUserID]; ok {
				for client := range userClients {
					select {
					case client.Send <- directMessage.Payload:
					default:
						h.logger.Warn("send buffer full, dropping message",
							"user_id", client.UserID)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// SendToUsers queues a payload for every connected device of each given user.
// Users without an active connection are skipped silently; delivery is
// best-effort on top of the persisted message record.
func (h *Hub) SendToUsers(userIDs []int64, payload []byte) {
	for _, userID := range userIDs {
		message := &MessageToSend{
			TargetUserID: userID,
			Payload:      payload,
		}
		select {
		case h.SendDirect <- message:
		case <-time.After(1 * time.Second):
			h.logger.Warn("timeout queuing message in hub", "user_id", userID)
		}
	}
}
