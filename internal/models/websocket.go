package models

import (
	"encoding/json"
	"time"
)

// WebSocket event types
const (
	// inbound
	EventIdentify    = "identify"
	EventMessageSend = "message.send"
	EventRoomJoin    = "room.join"
	EventRoomCreate  = "room.create"

	// outbound
	EventIdentityAssigned = "identity.assigned"
	EventHistorySnapshot  = "history.snapshot"
	EventMessageNew       = "message.new"
	EventMessageNotice    = "message.notice"
	EventPresenceUpdate   = "presence.update"
	EventRoomsList        = "rooms.list"
	EventRoomJoined       = "room.joined"
	EventRoomNotice       = "room.notice"
	EventError            = "error"
)

type WSMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// WSInbound is decoded in two steps: the envelope first, then the payload by event.
type WSInbound struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type WSIdentifyPayload struct {
	Ticket      string `json:"ticket"`
	DisplayName string `json:"display_name"`
	Room        string `json:"room,omitempty"`
}

type WSMessageSendPayload struct {
	Text string `json:"text"`
}

type WSIdentityPayload struct {
	Token       string `json:"token"`
	Ticket      string `json:"ticket"`
	DisplayName string `json:"display_name"`
	Room        string `json:"room"`
	// Issued is true when a new identity was created and the ticket must be stored client-side
	Issued bool `json:"issued"`
}

type WSPresencePayload struct {
	Room   string   `json:"room"`
	Online []string `json:"online"`
}

type WSErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type WSRoomJoinPayload struct {
	Room string `json:"room"`
}

// WSRoomCreatePayload names a new room. An empty ID is derived from Name.
type WSRoomCreatePayload struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type WSRoomJoinedPayload struct {
	Room Room `json:"room"`
}

// Room notice types
const (
	RoomNoticeJoin  = "join"
	RoomNoticeLeave = "leave"
)

// WSRoomNoticePayload tells the rest of a room that someone arrived or left
type WSRoomNoticePayload struct {
	Type   string    `json:"type"`
	Room   string    `json:"room"`
	Name   string    `json:"name"`
	SentAt time.Time `json:"sent_at"`
}
