package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tullo/modchat/internal/models"
	"github.com/tullo/modchat/internal/repository"
)

type flakyStore struct {
	*repository.MemoryStore
	fail bool
}

func (s *flakyStore) Save(ctx context.Context, key string, data []byte) error {
	if s.fail {
		return errors.New("write failed")
	}
	return s.MemoryStore.Save(ctx, key, data)
}

func newTestBuffer(t *testing.T, capacity int) (*Buffer, *flakyStore) {
	t.Helper()
	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	b := NewBuffer(repository.NewMessageRepository(store), capacity)
	require.NoError(t, b.Load(context.Background()))
	return b, store
}

func userMsg(token, name, text string) models.Message {
	return models.NewUserMessage(models.Identity{Token: token, DisplayName: name}, "general", text, time.Now())
}

func TestBuffer_KeepsLastHundred(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuffer(t, 100)

	for i := 0; i < 150; i++ {
		require.NoError(t, b.Append(ctx, userMsg("tok", "Alice", fmt.Sprintf("msg %d", i))))
		assert.LessOrEqual(t, b.Len(), 100)
	}

	snap := b.Snapshot()
	require.Len(t, snap, 100)
	for i, m := range snap {
		assert.Equal(t, fmt.Sprintf("msg %d", i+50), m.Text)
	}
}

func TestBuffer_PersistsEveryAppend(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuffer(t, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Append(ctx, userMsg("tok", "Alice", fmt.Sprintf("m%d", i))))
	}

	restored := NewBuffer(repository.NewMessageRepository(store), 3)
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, b.Snapshot(), restored.Snapshot())
}

func TestBuffer_LoadTruncatesOversizedDocument(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	big, _ := newTestBuffer(t, 10)
	for i := 0; i < 10; i++ {
		require.NoError(t, big.Append(ctx, userMsg("tok", "A", fmt.Sprintf("m%d", i))))
	}
	require.NoError(t, repository.NewMessageRepository(store).SaveHistory(ctx, big.Snapshot()))

	small := NewBuffer(repository.NewMessageRepository(store), 4)
	require.NoError(t, small.Load(ctx))
	snap := small.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, "m6", snap[0].Text)
	assert.Equal(t, "m9", snap[3].Text)
}

func TestBuffer_AppendFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuffer(t, 100)
	require.NoError(t, b.Append(ctx, userMsg("tok", "Alice", "first")))

	store.fail = true
	assert.Error(t, b.Append(ctx, userMsg("tok", "Alice", "second")))
	assert.Equal(t, 1, b.Len())
}

func TestBuffer_ClearForKeepsSystemMessages(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuffer(t, 100)

	require.NoError(t, b.Append(ctx, userMsg("tok-a", "Alice", "hi")))
	require.NoError(t, b.Append(ctx, userMsg("tok-b", "Bob", "yo")))
	require.NoError(t, b.Append(ctx, models.NewSystemMessage(models.AuthorServer, "", "notice", time.Now())))
	require.NoError(t, b.Append(ctx, userMsg("tok-a", "Alice", "again")))

	removed, err := b.ClearFor(ctx, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "yo", snap[0].Text)
	assert.True(t, snap[1].IsSystem())

	removed, err = b.ClearFor(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestBuffer_PurgeAll(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuffer(t, 100)
	require.NoError(t, b.Append(ctx, userMsg("tok", "Alice", "hi")))

	store.fail = true
	assert.Error(t, b.PurgeAll(ctx))
	assert.Equal(t, 1, b.Len())

	store.fail = false
	require.NoError(t, b.PurgeAll(ctx))
	assert.Zero(t, b.Len())
}

func TestBuffer_ChangeAndAnnouncementShareOneWrite(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuffer(t, 100)
	require.NoError(t, b.Append(ctx, userMsg("tok-a", "Alice", "hi")))
	require.NoError(t, b.Append(ctx, userMsg("tok-b", "Bob", "yo")))
	cleared := models.NewSystemMessage(models.AuthorServer, "", "cleared", time.Now())

	store.fail = true
	_, err := b.ClearFor(ctx, "tok-a", cleared)
	assert.Error(t, err)
	assert.Equal(t, 2, b.Len())

	store.fail = false
	removed, err := b.ClearFor(ctx, "tok-a", cleared)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "cleared", snap[1].Text)

	// nothing to clear means nothing is written, announcement included
	removed, err = b.ClearFor(ctx, "tok-a", cleared)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 2, b.Len())

	purged := models.NewSystemMessage(models.AuthorServer, "", "purged", time.Now())
	require.NoError(t, b.PurgeAll(ctx, purged))
	snap = b.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "purged", snap[0].Text)

	reloaded := NewBuffer(repository.NewMessageRepository(store), 100)
	require.NoError(t, reloaded.Load(ctx))
	require.Equal(t, 1, reloaded.Len())
	assert.Equal(t, purged.ID, reloaded.Snapshot()[0].ID)
}

func TestBuffer_Lookups(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuffer(t, 100)

	require.NoError(t, b.Append(ctx, userMsg("tok", "Alice", "one")))
	require.NoError(t, b.Append(ctx, userMsg("tok", "Alicia", "two")))
	dev := models.NewUserMessage(models.Identity{Token: "other", DisplayName: "Bob"}, "dev", "three", time.Now())
	require.NoError(t, b.Append(ctx, dev))

	assert.Equal(t, 2, b.CountBy("tok"))
	name, ok := b.LastDisplayName("tok")
	assert.True(t, ok)
	assert.Equal(t, "Alicia", name)
	_, ok = b.LastDisplayName("ghost")
	assert.False(t, ok)

	assert.Len(t, b.ForRoom("general"), 2)
	assert.Len(t, b.ForRoom("dev"), 1)
}
