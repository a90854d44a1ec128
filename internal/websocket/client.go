package websocket

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tullo/modchat/internal/metrics"
	"github.com/tullo/modchat/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 10240 // 10KB

	// Outbound events buffered per client before it counts as slow
	sendBufferSize = 256
)

// Core receives the events a session produces
type Core interface {
	Connect(sessionID uuid.UUID) error
	Disconnect(sessionID uuid.UUID)
	Identify(sessionID uuid.UUID, ticket, displayName, room string) error
	Submit(sessionID uuid.UUID, text string) error
	JoinRoom(sessionID uuid.UUID, room string) error
	CreateRoom(sessionID uuid.UUID, id, name, description string) error
}

// Limiter throttles chat submissions and room creation per session
type Limiter interface {
	Allow(key string) bool
}

// Client represents a WebSocket session
type Client struct {
	hub       *Hub
	core      Core
	limiter   Limiter
	conn      *websocket.Conn
	send      chan []byte
	sessionID uuid.UUID
	logger    zerolog.Logger

	// guarded by hub.mu
	room string
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, core Core, limiter Limiter, conn *websocket.Conn, logger zerolog.Logger) *Client {
	id := uuid.New()
	return &Client{
		hub:       hub,
		core:      core,
		limiter:   limiter,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		sessionID: id,
		logger:    logger.With().Str("session", id.String()).Logger(),
	}
}

// ReadPump pumps messages from the WebSocket connection to the core
func (c *Client) ReadPump() {
	defer func() {
		c.core.Disconnect(c.sessionID)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}

		if err := c.handleMessage(bytes.TrimSpace(message)); err != nil {
			// the core has stopped
			break
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one inbound frame and hands it to the core
func (c *Client) handleMessage(data []byte) error {
	var in models.WSInbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.sendError("Invalid message format", "invalid_format")
		return nil
	}

	switch in.Event {
	case models.EventIdentify:
		var req models.WSIdentifyPayload
		if err := decodePayload(in.Payload, &req); err != nil {
			c.sendError("Invalid identify payload", "invalid_payload")
			return nil
		}
		return c.core.Identify(c.sessionID, req.Ticket, req.DisplayName, req.Room)

	case models.EventMessageSend:
		if !c.allow() {
			metrics.MessagesRejected.WithLabelValues("rate_limited").Inc()
			return nil
		}
		var req models.WSMessageSendPayload
		if err := decodePayload(in.Payload, &req); err != nil {
			c.sendError("Invalid message payload", "invalid_payload")
			return nil
		}
		return c.core.Submit(c.sessionID, req.Text)

	case models.EventRoomJoin:
		var req models.WSRoomJoinPayload
		if err := decodePayload(in.Payload, &req); err != nil {
			c.sendError("Invalid room payload", "invalid_payload")
			return nil
		}
		return c.core.JoinRoom(c.sessionID, req.Room)

	case models.EventRoomCreate:
		if !c.allow() {
			return nil
		}
		var req models.WSRoomCreatePayload
		if err := decodePayload(in.Payload, &req); err != nil {
			c.sendError("Invalid room payload", "invalid_payload")
			return nil
		}
		return c.core.CreateRoom(c.sessionID, req.ID, req.Name, req.Description)

	default:
		c.sendError("Unknown event type", "unknown_event")
		return nil
	}
}

// allow applies the session's rate limit, answering with an error when it is spent
func (c *Client) allow() bool {
	if c.limiter == nil || c.limiter.Allow(c.sessionID.String()) {
		return true
	}
	c.sendError("Rate limit exceeded", "rate_limited")
	return false
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, v)
}

// sendError sends an error event to this client through the hub, which skips
// it if the client has already been dropped
func (c *Client) sendError(message, code string) {
	c.hub.SendTo(c.sessionID, models.WSMessage{
		Event: models.EventError,
		Payload: models.WSErrorPayload{
			Message: message,
			Code:    code,
		},
	})
}
