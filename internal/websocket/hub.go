package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tullo/modchat/internal/models"
)

// Hub maintains the set of active clients and fans events out to them. Every
// delivery is a non-blocking send; a client whose buffer is full is dropped.
type Hub struct {
	// Registered clients by session id
	clients map[uuid.UUID]*Client

	// Unregister requests from clients
	unregister chan *Client

	logger zerolog.Logger
	done   chan struct{}

	// Mutex for thread-safe operations
	mu sync.RWMutex
	// set under mu once Run has closed every client
	stopped bool
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		unregister: make(chan *Client),
		logger:     logger.With().Str("component", "hub").Logger(),
		done:       make(chan struct{}),
	}
}

// Run starts the hub and closes every client when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

			h.logger.Debug().Str("session", client.sessionID.String()).Msg("Client unregistered")

		case <-ctx.Done():
			h.mu.Lock()
			for _, client := range h.clients {
				h.remove(client)
			}
			h.stopped = true
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client, reporting false once the hub has stopped. The client
// can be addressed as soon as Register returns.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.clients[c.sessionID] = c

	h.logger.Debug().Str("session", c.sessionID.String()).Msg("Client registered")
	return true
}

// Unregister removes a client if it is still registered
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// remove deletes client and closes its send channel. Callers hold the write lock.
func (h *Hub) remove(client *Client) {
	if current, ok := h.clients[client.sessionID]; ok && current == client {
		delete(h.clients, client.sessionID)
		close(client.send)
	}
}

func (h *Hub) encode(msg models.WSMessage) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("event", msg.Event).Msg("Failed to encode event")
		return nil, false
	}
	return data, true
}

// deliver sends data to every client matching keep, evicting slow clients
func (h *Hub) deliver(data []byte, keep func(*Client) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		if !keep(client) {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn().Str("session", client.sessionID.String()).Msg("Dropping slow client")
			h.remove(client)
		}
	}
}

// SendTo sends an event to a single session. Departed sessions are skipped.
func (h *Hub) SendTo(sessionID uuid.UUID, msg models.WSMessage) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.deliver(data, func(c *Client) bool { return c.sessionID == sessionID })
}

// BroadcastAll sends an event to every connected session
func (h *Hub) BroadcastAll(msg models.WSMessage) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.deliver(data, func(*Client) bool { return true })
}

// BroadcastRoom sends an event to the sessions subscribed to room
func (h *Hub) BroadcastRoom(msg models.WSMessage, room string) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.deliver(data, func(c *Client) bool { return c.room == room })
}

// BroadcastRoomExcept sends an event to the sessions in room other than except
func (h *Hub) BroadcastRoomExcept(msg models.WSMessage, room string, except uuid.UUID) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.deliver(data, func(c *Client) bool { return c.room == room && c.sessionID != except })
}

// Subscribe moves a session into room
func (h *Hub) Subscribe(sessionID uuid.UUID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[sessionID]; ok {
		client.room = room
	}
}

// ForceDisconnect closes a session's connection
func (h *Hub) ForceDisconnect(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[sessionID]; ok {
		h.remove(client)
	}
}

// Count returns the number of connected sessions
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
