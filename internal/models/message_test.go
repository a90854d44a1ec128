package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemMessagesAreNotAttributable(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()

	sys := NewSystemMessage(AuthorAutoMod, "", "hello", now)
	assert.True(sys.IsSystem())
	assert.Empty(sys.Token)
	assert.Equal(AuthorAutoMod, sys.Author)

	user := NewUserMessage(Identity{Token: "tok", DisplayName: "Alice"}, "general", "hi", now)
	assert.False(user.IsSystem())
	assert.Equal("tok", user.Token)
	assert.Equal("Alice", user.Author)
	assert.NotEqual(sys.ID, user.ID)
}

func TestMessageVisibleIn(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		room string
		want bool
	}{
		{name: "Global system message", msg: Message{Kind: KindSystem}, room: "dev", want: true},
		{name: "Same room", msg: Message{Kind: KindUser, Room: "dev"}, room: "dev", want: true},
		{name: "Other room", msg: Message{Kind: KindUser, Room: "general"}, room: "dev", want: false},
		{name: "Room-scoped system message", msg: Message{Kind: KindSystem, Room: "general"}, room: "dev", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.VisibleIn(tt.room); got != tt.want {
				t.Errorf("VisibleIn(%q) = %v, want %v", tt.room, got, tt.want)
			}
		})
	}
}
