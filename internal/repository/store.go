package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Document keys for the three logical tables
const (
	KeyBans        = "bans"
	KeyBannedWords = "bannedWords"
	KeyMessages    = "messages"
)

// ErrStoreClosed is returned by stores used after Close
var ErrStoreClosed = errors.New("store closed")

// Store persists whole JSON documents by key. Documents are loaded once at startup
// and rewritten wholesale on every mutation.
type Store interface {
	// Load returns nil data and no error when the key has never been written.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// LoadJSON decodes the document at key into dst. It reports false when the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	data, err := s.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it under key
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.Save(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
