package moderator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tullo/modchat/internal/models"
	"github.com/tullo/modchat/internal/repository"
)

// State is the in-memory authority for bans, banned words and mutes. It is not
// safe for concurrent use; the chat core owns it and serializes every call.
//
// Persistent mutations write the new document first and only then swap it in,
// so memory never runs ahead of the store.
type State struct {
	repo  *repository.ModerationRepository
	bans  []models.BanRecord
	words []string
	mutes map[string]time.Time
	now   func() time.Time
}

// NewState creates an empty state. A nil clock means time.Now.
func NewState(repo *repository.ModerationRepository, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{
		repo:  repo,
		mutes: make(map[string]time.Time),
		now:   now,
	}
}

// Load replaces bans and banned words with the persisted copies
func (s *State) Load(ctx context.Context) error {
	bans, err := s.repo.GetBans(ctx)
	if err != nil {
		return err
	}
	words, err := s.repo.GetBannedWords(ctx)
	if err != nil {
		return err
	}

	// older documents may carry duplicates; keep the first of each
	s.bans = s.bans[:0]
	for _, b := range bans {
		if b.Token != "" && s.banIndex(b.Token) < 0 {
			s.bans = append(s.bans, b)
		}
	}
	s.words = s.words[:0]
	for _, w := range words {
		if w != "" && s.wordIndex(w) < 0 {
			s.words = append(s.words, w)
		}
	}
	return nil
}

// Flush rewrites both persisted documents from memory
func (s *State) Flush(ctx context.Context) error {
	if err := s.repo.SaveBans(ctx, s.bans); err != nil {
		return err
	}
	return s.repo.SaveBannedWords(ctx, s.words)
}

// Bans

func (s *State) banIndex(token string) int {
	return slices.IndexFunc(s.bans, func(b models.BanRecord) bool { return b.Token == token })
}

func (s *State) IsBanned(token string) bool {
	return token != "" && s.banIndex(token) >= 0
}

// Ban records a ban for token. It reports false without touching the store when
// the token is already banned.
func (s *State) Ban(ctx context.Context, token, displayName, reason string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("cannot ban an empty token")
	}
	if s.IsBanned(token) {
		return false, nil
	}

	next := append(slices.Clone(s.bans), models.BanRecord{
		Token:       token,
		DisplayName: displayName,
		Reason:      reason,
		IssuedAt:    s.now().UTC(),
	})
	if err := s.repo.SaveBans(ctx, next); err != nil {
		return false, err
	}
	s.bans = next
	return true, nil
}

// Unban removes the ban for token and returns it, or nil when there was none
func (s *State) Unban(ctx context.Context, token string) (*models.BanRecord, error) {
	i := s.banIndex(token)
	if i < 0 {
		return nil, nil
	}

	removed := s.bans[i]
	next := slices.Delete(slices.Clone(s.bans), i, i+1)
	if err := s.repo.SaveBans(ctx, next); err != nil {
		return nil, err
	}
	s.bans = next
	return &removed, nil
}

// ReplaceBans persists bans as the whole ban list and adopts it. Commands use it
// to restore a list captured before a change that could not be announced.
func (s *State) ReplaceBans(ctx context.Context, bans []models.BanRecord) error {
	next := slices.Clone(bans)
	if err := s.repo.SaveBans(ctx, next); err != nil {
		return err
	}
	s.bans = next
	return nil
}

// Bans returns a copy of the ban list in issue order
func (s *State) Bans() []models.BanRecord {
	return slices.Clone(s.bans)
}

// Mutes

// sweepMutes drops every mute whose expiry has passed
func (s *State) sweepMutes() {
	now := s.now()
	for token, exp := range s.mutes {
		if !now.Before(exp) {
			delete(s.mutes, token)
		}
	}
}

// IsMuted reports whether token is muted and for how much longer
func (s *State) IsMuted(token string) (bool, time.Duration) {
	s.sweepMutes()
	exp, ok := s.mutes[token]
	if !ok {
		return false, 0
	}
	return true, exp.Sub(s.now())
}

// Mute silences token for d, replacing any existing mute, and returns the expiry
func (s *State) Mute(token string, d time.Duration) time.Time {
	exp := s.now().Add(d)
	s.mutes[token] = exp
	return exp
}

// Unmute lifts a mute early. It reports false when token was not muted.
func (s *State) Unmute(token string) bool {
	s.sweepMutes()
	if _, ok := s.mutes[token]; !ok {
		return false
	}
	delete(s.mutes, token)
	return true
}

// Mutes returns the active mutes
func (s *State) Mutes() []models.MuteEntry {
	s.sweepMutes()
	out := make([]models.MuteEntry, 0, len(s.mutes))
	for token, exp := range s.mutes {
		out = append(out, models.MuteEntry{Token: token, ExpiresAt: exp})
	}
	slices.SortFunc(out, func(a, b models.MuteEntry) int { return a.ExpiresAt.Compare(b.ExpiresAt) })
	return out
}

// Banned words

func (s *State) wordIndex(word string) int {
	return slices.IndexFunc(s.words, func(w string) bool { return strings.EqualFold(w, word) })
}

// AddBannedWord adds word to the set. Membership is case-insensitive; it reports
// false when the word is already present.
func (s *State) AddBannedWord(ctx context.Context, word string) (bool, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return false, fmt.Errorf("banned word must not be empty")
	}
	if s.wordIndex(word) >= 0 {
		return false, nil
	}

	next := append(slices.Clone(s.words), word)
	if err := s.repo.SaveBannedWords(ctx, next); err != nil {
		return false, err
	}
	s.words = next
	return true, nil
}

// RemoveBannedWord removes word from the set, reporting false when it was absent
func (s *State) RemoveBannedWord(ctx context.Context, word string) (bool, error) {
	i := s.wordIndex(strings.TrimSpace(word))
	if i < 0 {
		return false, nil
	}

	next := slices.Delete(slices.Clone(s.words), i, i+1)
	if err := s.repo.SaveBannedWords(ctx, next); err != nil {
		return false, err
	}
	s.words = next
	return true, nil
}

// ReplaceBannedWords persists words as the whole set and adopts it
func (s *State) ReplaceBannedWords(ctx context.Context, words []string) error {
	next := slices.Clone(words)
	if err := s.repo.SaveBannedWords(ctx, next); err != nil {
		return err
	}
	s.words = next
	return nil
}

// FindBannedWord returns the first banned word, in insertion order, that occurs
// in text ignoring case
func (s *State) FindBannedWord(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, w := range s.words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}

// BannedWords returns a copy of the set in insertion order
func (s *State) BannedWords() []string {
	return slices.Clone(s.words)
}
