package moderator

import (
	"strings"
	"time"
)

// Sigil marks input as a command rather than chat text
const Sigil = "/"

type Verdict int

const (
	Accepted Verdict = iota
	RejectedBanned
	RejectedMuted
	Command
	RejectedBannedWord
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedBanned:
		return "banned"
	case RejectedMuted:
		return "muted"
	case Command:
		return "command"
	case RejectedBannedWord:
		return "banned_word"
	default:
		return "unknown"
	}
}

// Decision is the filter's verdict for one inbound message
type Decision struct {
	Verdict Verdict
	// Remaining is set for RejectedMuted
	Remaining time.Duration
	// Word is set for RejectedBannedWord
	Word string
}

// Status is the read side of moderation state the filter needs
type Status interface {
	IsBanned(token string) bool
	IsMuted(token string) (bool, time.Duration)
	FindBannedWord(text string) (string, bool)
}

// Evaluate decides what happens to text sent by token. The order is fixed: a
// banned sender never gets a command parsed, and a command is never scanned for
// banned words.
func Evaluate(s Status, token, text string) Decision {
	if s.IsBanned(token) {
		return Decision{Verdict: RejectedBanned}
	}
	if muted, remaining := s.IsMuted(token); muted {
		return Decision{Verdict: RejectedMuted, Remaining: remaining}
	}
	if IsCommand(text) {
		return Decision{Verdict: Command}
	}
	if word, found := s.FindBannedWord(text); found {
		return Decision{Verdict: RejectedBannedWord, Word: word}
	}
	return Decision{Verdict: Accepted}
}

// IsCommand reports whether text starts with the command sigil
func IsCommand(text string) bool {
	return strings.HasPrefix(text, Sigil)
}

// BannedWordReason is the ban reason recorded when AutoMod bans for word
func BannedWordReason(word string) string {
	return `Used banned word "` + word + `"`
}
