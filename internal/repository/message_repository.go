package repository

import (
	"context"

	"github.com/tullo/modchat/internal/models"
)

// MessageRepository reads and writes the message history document
type MessageRepository struct {
	store Store
}

func NewMessageRepository(store Store) *MessageRepository {
	return &MessageRepository{store: store}
}

// GetHistory loads the persisted history, oldest first
func (r *MessageRepository) GetHistory(ctx context.Context) ([]models.Message, error) {
	var messages []models.Message
	if _, err := LoadJSON(ctx, r.store, KeyMessages, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SaveHistory rewrites the whole history
func (r *MessageRepository) SaveHistory(ctx context.Context, messages []models.Message) error {
	if messages == nil {
		messages = []models.Message{}
	}
	return SaveJSON(ctx, r.store, KeyMessages, messages)
}
