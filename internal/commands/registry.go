// Package commands implements the slash-command engine. Verbs are registered
// once at startup and dispatched against the moderation state and history the
// chat core owns.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tullo/modchat/internal/history"
	"github.com/tullo/modchat/internal/models"
	"github.com/tullo/modchat/internal/moderator"
)

// Directory is the view of connected, identified sessions that verbs need
type Directory interface {
	// Online lists each identified identity once
	Online() []models.Identity
	// Find matches a token first, then a display name ignoring case
	Find(nameOrToken string) (models.Identity, bool)
	// Kick force-disconnects every session of token and returns how many there were
	Kick(token string) int
}

// Rand is the source for /roll and /flip
type Rand interface {
	IntN(n int) int
}

// Context carries everything one command invocation may touch. It lives for a
// single dispatch on the chat core's goroutine.
type Context struct {
	Ctx         context.Context
	Caller      models.Identity
	Room        string
	IsAdmin     bool
	Moderation  *moderator.State
	History     *history.Buffer
	Directory   Directory
	Rand        Rand
	DefaultMute time.Duration

	// Reply sends a private notice to the caller
	Reply func(text string)
	// Announce appends a system message to history and broadcasts it. An empty
	// room makes it global.
	Announce func(author, room, text string) error
	// Publish broadcasts a system message the verb has already stored
	Publish func(m models.Message)
	// Now stamps announcements built by verbs. Nil means time.Now.
	Now func() time.Time
}

// announcement builds a system message for Publish
func (c *Context) announcement(author, room, text string) models.Message {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return models.NewSystemMessage(author, room, text, now().UTC())
}

// Descriptor defines one verb
type Descriptor struct {
	Name          string
	Usage         string
	Summary       string
	RequiresAdmin bool
	MinArgs       int
	Execute       func(c *Context, args []string) error
}

// Outcome classifies a dispatch for logging and metrics
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeUnknown Outcome = "unknown"
	OutcomeDenied  Outcome = "denied"
	OutcomeUsage   Outcome = "usage"
	OutcomeFailed  Outcome = "failed"
)

// Registry maps verbs to descriptors
type Registry struct {
	verbs map[string]*Descriptor
	order []*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{verbs: make(map[string]*Descriptor)}
}

// NewDefaultRegistry returns a registry holding every built-in verb
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerUserVerbs(r)
	registerAdminVerbs(r)
	return r
}

// Register adds d, panicking on duplicates since registration happens at startup
func (r *Registry) Register(d *Descriptor) {
	name := strings.ToLower(d.Name)
	if _, exists := r.verbs[name]; exists {
		panic(fmt.Sprintf("commands: verb %q registered twice", name))
	}
	d.Name = name
	r.verbs[name] = d
	r.order = append(r.order, d)
}

// Lookup returns the descriptor for verb, ignoring case
func (r *Registry) Lookup(verb string) (*Descriptor, bool) {
	d, ok := r.verbs[strings.ToLower(verb)]
	return d, ok
}

// Descriptors returns every verb in registration order
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Parse splits command text into a lowercased verb and its arguments
func Parse(text string) (string, []string) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(text), moderator.Sigil))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// Dispatch runs text as a command. Input and permission problems are answered
// with a private reply; the returned error is reserved for durability failures,
// which are also reported to the caller. A verb that fails leaves shared state
// as it was, or says in its error which change still stands.
func (r *Registry) Dispatch(c *Context, text string) (string, Outcome, error) {
	verb, args := Parse(text)

	d, ok := r.verbs[verb]
	if !ok {
		c.Reply(fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", verb))
		return verb, OutcomeUnknown, nil
	}
	if d.RequiresAdmin && !c.IsAdmin {
		c.Reply("You are not an admin.")
		return verb, OutcomeDenied, nil
	}
	if len(args) < d.MinArgs {
		c.Reply("Usage: " + d.Usage)
		return verb, OutcomeUsage, nil
	}

	if err := d.Execute(c, args); err != nil {
		c.Reply("Command failed: " + err.Error())
		return verb, OutcomeFailed, err
	}
	return verb, OutcomeOK, nil
}

// helpText lists the verbs visible to the caller
func (r *Registry) helpText(isAdmin bool) string {
	var b strings.Builder
	b.WriteString("User Commands:")
	for _, d := range r.order {
		if !d.RequiresAdmin {
			fmt.Fprintf(&b, "\n  %s - %s", d.Usage, d.Summary)
		}
	}
	if isAdmin {
		b.WriteString("\n\nAdmin Commands:")
		for _, d := range r.order {
			if d.RequiresAdmin {
				fmt.Fprintf(&b, "\n  %s - %s", d.Usage, d.Summary)
			}
		}
	}
	return b.String()
}

// targetName resolves the display name shown for token: a live session first,
// then the most recent history entry, then a ban record
func targetName(c *Context, token string) string {
	if c.Directory != nil {
		if id, ok := c.Directory.Find(token); ok && id.Token == token {
			return id.DisplayName
		}
	}
	if name, ok := c.History.LastDisplayName(token); ok {
		return name
	}
	for _, b := range c.Moderation.Bans() {
		if b.Token == token && b.DisplayName != "" {
			return b.DisplayName
		}
	}
	return "Unknown"
}
