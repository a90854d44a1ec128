package models

import (
	"regexp"
	"strings"
)

// Room is a named channel that sessions join. The ID is the routing key; Name
// and Description are display metadata.
type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

var roomIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// RoomID normalizes s into a room id: trimmed, lower case, inner whitespace
// runs replaced by a single dash
func RoomID(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// ValidRoomID reports whether id is a normalized, routable room id
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}
