package moderator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tullo/modchat/internal/repository"
)

// flakyStore fails every Save while fail is set
type flakyStore struct {
	*repository.MemoryStore
	fail bool
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) Save(ctx context.Context, key string, data []byte) error {
	if s.fail {
		return errDiskFull
	}
	return s.MemoryStore.Save(ctx, key, data)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestState(t *testing.T) (*State, *flakyStore, *fakeClock) {
	t.Helper()
	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewState(repository.NewModerationRepository(store), clock.Now)
	require.NoError(t, s.Load(context.Background()))
	return s, store, clock
}

func TestState_BanIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestState(t)

	created, err := s.Ban(ctx, "tok-1", "Alice", "spam")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, s.IsBanned("tok-1"))

	created, err = s.Ban(ctx, "tok-1", "Alice", "spam again")
	require.NoError(t, err)
	assert.False(t, created)

	bans := s.Bans()
	require.Len(t, bans, 1)
	assert.Equal(t, "spam", bans[0].Reason)
	assert.Equal(t, "Alice", bans[0].DisplayName)
}

func TestState_BanSurvivesReload(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)

	_, err := s.Ban(ctx, "tok-1", "Alice", "spam")
	require.NoError(t, err)
	_, err = s.AddBannedWord(ctx, "shoe")
	require.NoError(t, err)

	reloaded := NewState(repository.NewModerationRepository(store), nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.True(t, reloaded.IsBanned("tok-1"))
	assert.Equal(t, []string{"shoe"}, reloaded.BannedWords())
}

func TestState_BanWriteFailureLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)

	store.fail = true
	created, err := s.Ban(ctx, "tok-1", "Alice", "spam")
	assert.ErrorIs(t, err, errDiskFull)
	assert.False(t, created)
	assert.False(t, s.IsBanned("tok-1"))

	store.fail = false
	created, err = s.Ban(ctx, "tok-1", "Alice", "spam")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestState_Unban(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)

	rec, err := s.Unban(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = s.Ban(ctx, "tok-1", "Alice", "spam")
	require.NoError(t, err)

	store.fail = true
	_, err = s.Unban(ctx, "tok-1")
	assert.Error(t, err)
	assert.True(t, s.IsBanned("tok-1"))

	store.fail = false
	rec, err = s.Unban(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Alice", rec.DisplayName)
	assert.False(t, s.IsBanned("tok-1"))
}

func TestState_MuteExpiresLazily(t *testing.T) {
	s, _, clock := newTestState(t)

	s.Mute("tok-1", time.Second)
	muted, remaining := s.IsMuted("tok-1")
	assert.True(t, muted)
	assert.Equal(t, time.Second, remaining)

	clock.Advance(time.Second)
	muted, _ = s.IsMuted("tok-1")
	assert.False(t, muted)
	assert.Empty(t, s.Mutes())
}

func TestState_MuteWithRealClock(t *testing.T) {
	s := NewState(repository.NewModerationRepository(repository.NewMemoryStore()), nil)

	s.Mute("tok-1", 50*time.Millisecond)
	muted, _ := s.IsMuted("tok-1")
	require.True(t, muted)

	time.Sleep(60 * time.Millisecond)
	muted, _ = s.IsMuted("tok-1")
	assert.False(t, muted)
}

func TestState_UnmuteAndRemute(t *testing.T) {
	s, _, clock := newTestState(t)

	assert.False(t, s.Unmute("tok-1"))

	s.Mute("tok-1", time.Minute)
	s.Mute("tok-1", 2*time.Minute) // replaces, does not stack
	require.Len(t, s.Mutes(), 1)

	clock.Advance(90 * time.Second)
	muted, remaining := s.IsMuted("tok-1")
	assert.True(t, muted)
	assert.Equal(t, 30*time.Second, remaining)

	assert.True(t, s.Unmute("tok-1"))
	muted, _ = s.IsMuted("tok-1")
	assert.False(t, muted)
}

func TestState_BannedWordSet(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)

	added, err := s.AddBannedWord(ctx, "Shoe")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddBannedWord(ctx, "shoe")
	require.NoError(t, err)
	assert.False(t, added, "membership ignores case")

	_, err = s.AddBannedWord(ctx, "  ")
	assert.Error(t, err)

	store.fail = true
	_, err = s.AddBannedWord(ctx, "sock")
	assert.Error(t, err)
	assert.Equal(t, []string{"Shoe"}, s.BannedWords())

	store.fail = false
	removed, err := s.RemoveBannedWord(ctx, "SHOE")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveBannedWord(ctx, "shoe")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, s.BannedWords())
}

func TestState_FindBannedWord(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestState(t)

	for _, w := range []string{"spam", "am", "Shoe"} {
		_, err := s.AddBannedWord(ctx, w)
		require.NoError(t, err)
	}

	tests := []struct {
		text  string
		want  string
		found bool
	}{
		{text: "this is SPAMmy", want: "spam", found: true},
		{text: "I am here", want: "am", found: true},
		{text: "I love my shoes", want: "Shoe", found: true},
		{text: "hello world", found: false},
		{text: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, found := s.FindBannedWord(tt.text)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestState_LoadDropsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Save(ctx, repository.KeyBans, []byte(`[{"token":"a","reason":"x"},{"token":"a","reason":"y"},{"token":""}]`)))
	require.NoError(t, store.Save(ctx, repository.KeyBannedWords, []byte(`["spam","SPAM",""]`)))

	s := NewState(repository.NewModerationRepository(store), nil)
	require.NoError(t, s.Load(ctx))

	bans := s.Bans()
	require.Len(t, bans, 1)
	assert.Equal(t, "x", bans[0].Reason)
	assert.Equal(t, []string{"spam"}, s.BannedWords())
}

func TestState_ReplaceRestoresCapturedLists(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)

	_, err := s.Ban(ctx, "tok-1", "Alice", "spam")
	require.NoError(t, err)
	_, err = s.AddBannedWord(ctx, "shoe")
	require.NoError(t, err)
	bans, words := s.Bans(), s.BannedWords()

	_, err = s.Ban(ctx, "tok-2", "Bob", "flood")
	require.NoError(t, err)
	_, err = s.RemoveBannedWord(ctx, "shoe")
	require.NoError(t, err)

	store.fail = true
	assert.ErrorIs(t, s.ReplaceBans(ctx, bans), errDiskFull)
	assert.True(t, s.IsBanned("tok-2"))

	store.fail = false
	require.NoError(t, s.ReplaceBans(ctx, bans))
	require.NoError(t, s.ReplaceBannedWords(ctx, words))
	assert.Equal(t, bans, s.Bans())
	assert.Equal(t, []string{"shoe"}, s.BannedWords())

	reloaded := NewState(repository.NewModerationRepository(store), nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.False(t, reloaded.IsBanned("tok-2"))
	assert.True(t, reloaded.IsBanned("tok-1"))
}
