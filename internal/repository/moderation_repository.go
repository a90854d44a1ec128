package repository

import (
	"context"

	"github.com/tullo/modchat/internal/models"
)

// ModerationRepository reads and writes the bans and banned-word documents
type ModerationRepository struct {
	store Store
}

func NewModerationRepository(store Store) *ModerationRepository {
	return &ModerationRepository{store: store}
}

// GetBans loads the persisted ban list. A missing document is an empty list.
func (r *ModerationRepository) GetBans(ctx context.Context) ([]models.BanRecord, error) {
	var bans []models.BanRecord
	if _, err := LoadJSON(ctx, r.store, KeyBans, &bans); err != nil {
		return nil, err
	}
	return bans, nil
}

// SaveBans rewrites the whole ban list
func (r *ModerationRepository) SaveBans(ctx context.Context, bans []models.BanRecord) error {
	if bans == nil {
		bans = []models.BanRecord{}
	}
	return SaveJSON(ctx, r.store, KeyBans, bans)
}

func (r *ModerationRepository) GetBannedWords(ctx context.Context) ([]string, error) {
	var words []string
	if _, err := LoadJSON(ctx, r.store, KeyBannedWords, &words); err != nil {
		return nil, err
	}
	return words, nil
}

func (r *ModerationRepository) SaveBannedWords(ctx context.Context, words []string) error {
	if words == nil {
		words = []string{}
	}
	return SaveJSON(ctx, r.store, KeyBannedWords, words)
}
