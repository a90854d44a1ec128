// Package history keeps the bounded, durable log of recent messages that is
// replayed to sessions when they identify.
package history

import (
	"context"
	"slices"

	"github.com/tullo/modchat/internal/models"
	"github.com/tullo/modchat/internal/repository"
)

// DefaultCapacity is the number of messages kept when no capacity is configured
const DefaultCapacity = 100

// Buffer holds the last N accepted messages, oldest first. Like moderator.State
// it is owned by the chat core and not safe for concurrent use.
type Buffer struct {
	repo     *repository.MessageRepository
	capacity int
	messages []models.Message
}

func NewBuffer(repo *repository.MessageRepository, capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{repo: repo, capacity: capacity}
}

// Load restores the persisted history, keeping only the newest entries if the
// stored document is larger than the capacity
func (b *Buffer) Load(ctx context.Context) error {
	messages, err := b.repo.GetHistory(ctx)
	if err != nil {
		return err
	}
	b.messages = b.truncate(messages)
	return nil
}

// Flush rewrites the persisted history from memory
func (b *Buffer) Flush(ctx context.Context) error {
	return b.repo.SaveHistory(ctx, b.messages)
}

func (b *Buffer) truncate(messages []models.Message) []models.Message {
	if over := len(messages) - b.capacity; over > 0 {
		messages = messages[over:]
	}
	return slices.Clone(messages)
}

// commit persists next and adopts it only if the write succeeded
func (b *Buffer) commit(ctx context.Context, next []models.Message) error {
	if err := b.repo.SaveHistory(ctx, next); err != nil {
		return err
	}
	b.messages = next
	return nil
}

// Append adds m at the tail, evicting the oldest entries past capacity
func (b *Buffer) Append(ctx context.Context, m models.Message) error {
	return b.commit(ctx, b.truncate(append(slices.Clone(b.messages), m)))
}

// ClearFor removes every user message authored by token and returns how many
// were removed. System messages are never removed. The then messages are
// appended in the same write, so a change and its announcement are stored
// together or not at all. Nothing is written when no message matches.
func (b *Buffer) ClearFor(ctx context.Context, token string, then ...models.Message) (int, error) {
	next := slices.DeleteFunc(slices.Clone(b.messages), func(m models.Message) bool {
		return !m.IsSystem() && m.Token == token
	})
	removed := len(b.messages) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := b.commit(ctx, b.truncate(append(next, then...))); err != nil {
		return 0, err
	}
	return removed, nil
}

// PurgeAll empties the buffer, leaving only the then messages
func (b *Buffer) PurgeAll(ctx context.Context, then ...models.Message) error {
	return b.commit(ctx, b.truncate(append([]models.Message{}, then...)))
}

// Snapshot returns a copy of the buffer, oldest first
func (b *Buffer) Snapshot() []models.Message {
	return slices.Clone(b.messages)
}

// ForRoom returns the messages visible in room, oldest first
func (b *Buffer) ForRoom(room string) []models.Message {
	out := make([]models.Message, 0, len(b.messages))
	for _, m := range b.messages {
		if m.VisibleIn(room) {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of buffered messages
func (b *Buffer) Len() int {
	return len(b.messages)
}

// Capacity returns N
func (b *Buffer) Capacity() int {
	return b.capacity
}

// CountBy counts buffered user messages authored by token
func (b *Buffer) CountBy(token string) int {
	n := 0
	for _, m := range b.messages {
		if !m.IsSystem() && m.Token == token {
			n++
		}
	}
	return n
}

// LastDisplayName returns the most recent display name token used in the buffer
func (b *Buffer) LastDisplayName(token string) (string, bool) {
	for i := len(b.messages) - 1; i >= 0; i-- {
		m := b.messages[i]
		if !m.IsSystem() && m.Token == token {
			return m.Author, true
		}
	}
	return "", false
}
