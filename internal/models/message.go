package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind distinguishes chat from system messages
type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

type Message struct {
	ID     uuid.UUID   `json:"id"`
	Kind   MessageKind `json:"kind"`
	Author string      `json:"author"`
	// Token is empty for system messages; they are never attributable to an identity.
	Token  string    `json:"token,omitempty"`
	Room   string    `json:"room,omitempty"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// NewUserMessage creates a chat message authored by an identity
func NewUserMessage(author Identity, room, text string, now time.Time) Message {
	return Message{
		ID:     uuid.New(),
		Kind:   KindUser,
		Author: author.DisplayName,
		Token:  author.Token,
		Room:   room,
		Text:   text,
		SentAt: now,
	}
}

// NewSystemMessage creates a message with a synthetic author. An empty room means
// the message is global.
func NewSystemMessage(author, room, text string, now time.Time) Message {
	return Message{
		ID:     uuid.New(),
		Kind:   KindSystem,
		Author: author,
		Room:   room,
		Text:   text,
		SentAt: now,
	}
}

// IsSystem reports whether the message has a synthetic author
func (m Message) IsSystem() bool {
	return m.Kind == KindSystem
}

// VisibleIn reports whether a message belongs in a room's view: global system
// messages are visible everywhere, everything else only in its own room.
func (m Message) VisibleIn(room string) bool {
	return m.Room == "" || m.Room == room
}
