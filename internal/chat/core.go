// Package chat owns the moderated chat state. A single goroutine in Core.Run
// executes every event, so moderation state, history and the session table
// are never touched concurrently.
package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tullo/modchat/internal/auth"
	"github.com/tullo/modchat/internal/commands"
	"github.com/tullo/modchat/internal/history"
	"github.com/tullo/modchat/internal/metrics"
	"github.com/tullo/modchat/internal/models"
	"github.com/tullo/modchat/internal/moderator"
)

var (
	ErrStopped       = errors.New("chat core stopped")
	ErrInvalidTicket = errors.New("invalid identity ticket")
	ErrNotCommand    = errors.New("text is not a command")
)

// Fanout delivers outbound events. Implementations must never block the caller.
type Fanout interface {
	SendTo(sessionID uuid.UUID, msg models.WSMessage)
	BroadcastAll(msg models.WSMessage)
	BroadcastRoom(msg models.WSMessage, room string)
	// BroadcastRoomExcept reaches every session in room other than except
	BroadcastRoomExcept(msg models.WSMessage, room string, except uuid.UUID)
	Subscribe(sessionID uuid.UUID, room string)
	ForceDisconnect(sessionID uuid.UUID)
}

// Options tune the core. The first room is the default.
type Options struct {
	AdminTokens      []string
	Rooms            []models.Room
	MaxRooms         int
	MuteDefault      time.Duration
	MaxMessageLength int
	WriteTimeout     time.Duration
}

type session struct {
	id         uuid.UUID
	identity   models.Identity
	identified bool
	room       string
}

type Core struct {
	logger     zerolog.Logger
	opts       Options
	admins     map[string]bool
	identities *auth.Manager
	moderation *moderator.State
	history    *history.Buffer
	registry   *commands.Registry
	out        Fanout
	rand       commands.Rand
	now        func() time.Time

	sessions map[uuid.UUID]*session
	rooms    []models.Room

	ops     chan func()
	stopped chan struct{}
}

func NewCore(
	logger zerolog.Logger,
	opts Options,
	identities *auth.Manager,
	moderation *moderator.State,
	hist *history.Buffer,
	registry *commands.Registry,
	out Fanout,
) *Core {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.MuteDefault <= 0 {
		opts.MuteDefault = 5 * time.Minute
	}
	if len(opts.Rooms) == 0 {
		opts.Rooms = []models.Room{{ID: "general", Name: "General"}}
	}
	if opts.MaxRooms < len(opts.Rooms) {
		opts.MaxRooms = len(opts.Rooms)
	}
	metrics.RoomsOpen.Set(float64(len(opts.Rooms)))

	admins := make(map[string]bool, len(opts.AdminTokens))
	for _, t := range opts.AdminTokens {
		admins[t] = true
	}

	return &Core{
		logger:     logger.With().Str("component", "chat").Logger(),
		opts:       opts,
		admins:     admins,
		identities: identities,
		moderation: moderation,
		history:    hist,
		registry:   registry,
		out:        out,
		rand:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		now:        time.Now,
		sessions:   make(map[uuid.UUID]*session),
		rooms:      slices.Clone(opts.Rooms),
		ops:        make(chan func()),
		stopped:    make(chan struct{}),
	}
}

// Run executes events until ctx is cancelled, then flushes state to the store
func (c *Core) Run(ctx context.Context) error {
	defer close(c.stopped)
	c.logger.Info().Msg("Chat core started")

	for {
		select {
		case op := <-c.ops:
			op()
		case <-ctx.Done():
			return c.flush()
		}
	}
}

func (c *Core) flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.WriteTimeout)
	defer cancel()

	var errs []error
	if err := c.moderation.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush moderation state: %w", err))
	}
	if err := c.history.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush history: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		c.logger.Error().Err(err).Msg("Final flush failed")
		return err
	}
	c.logger.Info().Msg("Chat core stopped, state flushed")
	return nil
}

// do runs fn on the core goroutine and waits for it to finish
func (c *Core) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case c.ops <- func() { defer close(finished); fn() }:
	case <-c.stopped:
		return ErrStopped
	}
	<-finished
	return nil
}

func (c *Core) writeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.opts.WriteTimeout)
}

// Events

// Connect registers a new, not yet identified session
func (c *Core) Connect(sessionID uuid.UUID) error {
	return c.do(func() {
		c.sessions[sessionID] = &session{id: sessionID}
		metrics.SessionsConnected.Inc()
		c.logger.Debug().Str("session", sessionID.String()).Msg("Session connected")
	})
}

// Disconnect drops a session. Unknown sessions are ignored.
func (c *Core) Disconnect(sessionID uuid.UUID) {
	_ = c.do(func() {
		s, ok := c.sessions[sessionID]
		if !ok {
			return
		}
		c.dropSession(s)
		if s.identified {
			c.roomNotice(models.RoomNoticeLeave, s)
			c.publishPresence(s.room)
		}
	})
}

func (c *Core) dropSession(s *session) {
	delete(c.sessions, s.id)
	metrics.SessionsConnected.Dec()
	c.logger.Debug().Str("session", s.id.String()).Str("token", s.identity.Token).Msg("Session disconnected")
}

// Identify binds an identity to a session, then replays the room's history
func (c *Core) Identify(sessionID uuid.UUID, ticket, displayName, room string) error {
	return c.do(func() {
		s, ok := c.sessions[sessionID]
		if !ok {
			return
		}
		if s.identified {
			c.sendError(sessionID, "Already identified", "already_identified")
			return
		}

		res, err := c.identities.Resolve(ticket, displayName)
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to issue identity ticket")
			c.sendError(sessionID, "Could not issue an identity", "identity_failed")
			return
		}

		s.identity = res.Identity
		s.identified = true
		s.room = c.pickRoom(room)
		c.out.Subscribe(sessionID, s.room)

		c.out.SendTo(sessionID, models.WSMessage{
			Event: models.EventIdentityAssigned,
			Payload: models.WSIdentityPayload{
				Token:       res.Identity.Token,
				Ticket:      res.Ticket,
				DisplayName: res.Identity.DisplayName,
				Room:        s.room,
				Issued:      res.Issued,
			},
		})
		c.sendRooms(sessionID)
		c.out.SendTo(sessionID, models.WSMessage{
			Event:   models.EventHistorySnapshot,
			Payload: c.history.ForRoom(s.room),
		})
		c.roomNotice(models.RoomNoticeJoin, s)
		c.publishPresence(s.room)

		c.logger.Info().
			Str("session", sessionID.String()).
			Str("token", res.Identity.Token).
			Str("room", s.room).
			Bool("issued", res.Issued).
			Msg("Session identified")
	})
}

// Submit runs inbound text through the filter and either broadcasts it,
// dispatches it as a command or rejects it
func (c *Core) Submit(sessionID uuid.UUID, text string) error {
	return c.do(func() {
		s, ok := c.sessions[sessionID]
		if !ok {
			return
		}
		if !s.identified {
			metrics.MessagesRejected.WithLabelValues("unidentified").Inc()
			c.notice(sessionID, "Please identify first.")
			return
		}
		c.submit(s, text)
	})
}

func (c *Core) submit(s *session, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.MessagesRejected.WithLabelValues("invalid").Inc()
		c.notice(s.id, "Message is required")
		return
	}
	if limit := c.opts.MaxMessageLength; limit > 0 && utf8.RuneCountInString(text) > limit {
		metrics.MessagesRejected.WithLabelValues("invalid").Inc()
		c.notice(s.id, fmt.Sprintf("Message is too long (max %d characters).", limit))
		return
	}

	token := s.identity.Token
	decision := moderator.Evaluate(c.moderation, token, text)

	switch decision.Verdict {
	case moderator.RejectedBanned:
		metrics.MessagesRejected.WithLabelValues("banned").Inc()
		c.notice(s.id, "You are banned.")

	case moderator.RejectedMuted:
		metrics.MessagesRejected.WithLabelValues("muted").Inc()
		c.notice(s.id, fmt.Sprintf("You are muted for %d more seconds.", ceilSeconds(decision.Remaining)))

	case moderator.Command:
		c.dispatch(s.identity, s.id, s.room, text, func(reply string) { c.notice(s.id, reply) })

	case moderator.RejectedBannedWord:
		metrics.MessagesRejected.WithLabelValues("banned_word").Inc()
		c.autoBan(s, decision.Word)

	case moderator.Accepted:
		c.accept(s, text)
	}
}

func (c *Core) accept(s *session, text string) {
	m := models.NewUserMessage(s.identity, s.room, text, c.now().UTC())

	ctx, cancel := c.writeContext()
	defer cancel()
	if err := c.history.Append(ctx, m); err != nil {
		metrics.StoreWriteFailures.WithLabelValues("messages").Inc()
		metrics.MessagesRejected.WithLabelValues("store_error").Inc()
		c.logger.Error().Err(err).Str("token", s.identity.Token).Msg("Failed to persist message")
		c.notice(s.id, "Message could not be delivered, please try again.")
		return
	}

	metrics.MessagesAccepted.Inc()
	c.out.BroadcastRoom(models.WSMessage{Event: models.EventMessageNew, Payload: m}, s.room)
}

// autoBan bans the sender of a banned word. The offending text is dropped
// whatever happens.
func (c *Core) autoBan(s *session, word string) {
	reason := moderator.BannedWordReason(word)
	name := s.identity.DisplayName

	ctx, cancel := c.writeContext()
	defer cancel()
	created, err := c.moderation.Ban(ctx, s.identity.Token, name, reason)
	if err != nil {
		metrics.StoreWriteFailures.WithLabelValues("bans").Inc()
		c.logger.Error().Err(err).Str("token", s.identity.Token).Str("reason", reason).Msg("AutoMod ban failed to persist")
		c.notice(s.id, "Your message was blocked.")
		return
	}
	if !created {
		return
	}

	text := fmt.Sprintf("%s has been banned for %s", name, reason)
	if err := c.announce(models.AuthorAutoMod, "", text); err != nil {
		// an unannounced ban is undone; the offending text is still dropped
		c.logger.Error().Err(err).Str("token", s.identity.Token).Msg("Failed to persist AutoMod announcement")
		if _, undoErr := c.moderation.Unban(ctx, s.identity.Token); undoErr != nil {
			metrics.StoreWriteFailures.WithLabelValues("bans").Inc()
			c.logger.Error().Err(undoErr).Str("token", s.identity.Token).Msg("AutoMod ban stands unannounced")
		}
		c.notice(s.id, "Your message was blocked.")
		return
	}

	metrics.AutoModBans.Inc()
	c.logger.Info().Str("token", s.identity.Token).Str("verb", "automod").Str("reason", reason).Msg("Identity banned")
	c.notice(s.id, "You have been banned.")
}

// announce appends a system message to history and broadcasts it
func (c *Core) announce(author, room, text string) error {
	m := models.NewSystemMessage(author, room, text, c.now().UTC())

	ctx, cancel := c.writeContext()
	defer cancel()
	if err := c.history.Append(ctx, m); err != nil {
		metrics.StoreWriteFailures.WithLabelValues("messages").Inc()
		return err
	}
	c.publish(m)
	return nil
}

// publish broadcasts a stored system message to its room, or to everyone when
// it is global
func (c *Core) publish(m models.Message) {
	msg := models.WSMessage{Event: models.EventMessageNew, Payload: m}
	if m.Room == "" {
		c.out.BroadcastAll(msg)
		return
	}
	c.out.BroadcastRoom(msg, m.Room)
}

func (c *Core) dispatch(caller models.Identity, sessionID uuid.UUID, room, text string, reply func(string)) {
	ctx, cancel := c.writeContext()
	defer cancel()

	cmdCtx := &commands.Context{
		Ctx:         ctx,
		Caller:      caller,
		Room:        room,
		IsAdmin:     c.admins[caller.Token],
		Moderation:  c.moderation,
		History:     c.history,
		Directory:   directory{c},
		Rand:        c.rand,
		DefaultMute: c.opts.MuteDefault,
		Reply:       reply,
		Announce:    c.announce,
		Publish:     c.publish,
		Now:         c.now,
	}

	verb, outcome, err := c.registry.Dispatch(cmdCtx, text)
	label := verb
	if outcome == commands.OutcomeUnknown {
		// keep arbitrary input out of metric labels
		label = "unknown"
	}
	metrics.CommandsExecuted.WithLabelValues(label, string(outcome)).Inc()

	log := c.logger.Info()
	if err != nil {
		metrics.StoreWriteFailures.WithLabelValues("command").Inc()
		log = c.logger.Error().Err(err)
	}
	log.Str("token", caller.Token).
		Str("session", sessionID.String()).
		Str("verb", verb).
		Str("outcome", string(outcome)).
		Msg("Command dispatched")
}

// Execute runs an admin command on behalf of the holder of ticket and returns
// the private replies it produced. Public effects are broadcast as usual.
func (c *Core) Execute(ticket, text string) ([]string, error) {
	token, ok := c.identities.Verify(ticket)
	if !ok {
		return nil, ErrInvalidTicket
	}
	text = strings.TrimSpace(text)
	if !moderator.IsCommand(text) {
		return nil, ErrNotCommand
	}

	var replies []string
	err := c.do(func() {
		caller := models.Identity{Token: token, DisplayName: c.displayName(token)}
		reply := func(r string) { replies = append(replies, r) }

		decision := moderator.Evaluate(c.moderation, token, text)
		switch decision.Verdict {
		case moderator.RejectedBanned:
			reply("You are banned.")
		case moderator.RejectedMuted:
			reply(fmt.Sprintf("You are muted for %d more seconds.", ceilSeconds(decision.Remaining)))
		default:
			c.dispatch(caller, uuid.Nil, c.rooms[0].ID, text, reply)
		}
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

func (c *Core) displayName(token string) string {
	for _, s := range c.sessions {
		if s.identified && s.identity.Token == token {
			return s.identity.DisplayName
		}
	}
	if name, ok := c.history.LastDisplayName(token); ok {
		return name
	}
	return "Admin"
}

// History returns the messages visible in room, oldest first
func (c *Core) History(room string) ([]models.Message, error) {
	var out []models.Message
	err := c.do(func() {
		out = c.history.ForRoom(c.pickRoom(room))
	})
	return out, err
}

// Outbound helpers

func (c *Core) notice(sessionID uuid.UUID, text string) {
	c.out.SendTo(sessionID, models.WSMessage{
		Event:   models.EventMessageNotice,
		Payload: models.NewSystemMessage(models.AuthorSystem, "", text, c.now().UTC()),
	})
}

func (c *Core) sendError(sessionID uuid.UUID, message, code string) {
	c.out.SendTo(sessionID, models.WSMessage{
		Event:   models.EventError,
		Payload: models.WSErrorPayload{Message: message, Code: code},
	})
}

func (c *Core) publishPresence(room string) {
	names := []string{}
	for _, id := range c.onlineIn(room) {
		names = append(names, id.DisplayName)
	}
	c.out.BroadcastRoom(models.WSMessage{
		Event:   models.EventPresenceUpdate,
		Payload: models.WSPresencePayload{Room: room, Online: names},
	}, room)
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
