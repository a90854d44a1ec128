package models

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultDisplayName is used when a client identifies without a name
	DefaultDisplayName = "Anonymous"

	// MaxDisplayNameLength caps display names in runes
	MaxDisplayNameLength = 32
)

// Identity is a session's resolved pseudonymous identity. Token is the only key
// moderation state is ever stored under; DisplayName is free to change.
type Identity struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
}

// NormalizeDisplayName trims, strips control characters and caps a client-supplied name
func NormalizeDisplayName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultDisplayName
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		runes := []rune(name)
		name = strings.TrimSpace(string(runes[:MaxDisplayNameLength]))
	}
	return name
}
