package models

import "time"

// BanRecord is a persisted ban, keyed by identity token
type BanRecord struct {
	Token       string    `json:"token"`
	DisplayName string    `json:"display_name"`
	Reason      string    `json:"reason"`
	IssuedAt    time.Time `json:"issued_at"`
}

// MuteEntry is a process-local timeout. Mutes are never persisted.
type MuteEntry struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Synthetic authors for system messages
const (
	AuthorAutoMod = "AutoMod"
	AuthorServer  = "Server"
	AuthorSystem  = "System"
)
