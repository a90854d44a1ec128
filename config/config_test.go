package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tullo/modchat/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ADMIN_TOKENS", "")
	t.Setenv("ROOMS", "")
	t.Setenv("ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, 100, cfg.Chat.HistoryCapacity)
	assert.Equal(t, 5*time.Minute, cfg.Chat.MuteDefault)
	assert.Equal(t, []models.Room{
		{ID: "general", Name: "General", Description: "A friendly demo room"},
		{ID: "dev", Name: "Dev Talk", Description: "Share code & tips"},
		{ID: "random", Name: "Random", Description: "Memes and ideas"},
	}, cfg.Chat.Rooms)
	assert.Equal(t, 50, cfg.Chat.MaxRooms)
	assert.Equal(t, "general", cfg.DefaultRoom())
	assert.Empty(t, cfg.Chat.AdminTokens)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("ADMIN_TOKENS", " a , b,,c ")
	t.Setenv("HISTORY_CAPACITY", "25")
	t.Setenv("MUTE_DEFAULT", "90s")
	t.Setenv("ROOMS", "lobby")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Chat.AdminTokens)
	assert.Equal(t, 25, cfg.Chat.HistoryCapacity)
	assert.Equal(t, 90*time.Second, cfg.Chat.MuteDefault)
	assert.Equal(t, "lobby", cfg.DefaultRoom())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "Unknown backend", env: map[string]string{"STORE_BACKEND": "etcd"}},
		{name: "Zero capacity", env: map[string]string{"HISTORY_CAPACITY": "0"}},
		{name: "Default secret in production", env: map[string]string{"ENV": "production", "JWT_SECRET": ""}},
		{name: "Invalid room id", env: map[string]string{"ROOMS": "general,-bad"}},
		{name: "Room limit below configured rooms", env: map[string]string{"ROOMS": "a,b,c", "MAX_ROOMS": "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RoomIDsAreLowerCased(t *testing.T) {
	t.Setenv("ROOMS", "General, Dev|Dev Talk|Code & tips,general|Duplicate")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []models.Room{
		{ID: "general", Name: "General"},
		{ID: "dev", Name: "Dev Talk", Description: "Code & tips"},
	}, cfg.Chat.Rooms)
	assert.Equal(t, "general", cfg.DefaultRoom())
}
