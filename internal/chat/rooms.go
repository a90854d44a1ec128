package chat

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tullo/modchat/internal/metrics"
	"github.com/tullo/modchat/internal/models"
)

const (
	maxRoomNameLength        = 64
	maxRoomDescriptionLength = 200
)

func (c *Core) roomIndex(id string) int {
	return slices.IndexFunc(c.rooms, func(r models.Room) bool { return r.ID == id })
}

// pickRoom resolves a requested room, falling back to the default
func (c *Core) pickRoom(room string) string {
	id := models.RoomID(room)
	if c.roomIndex(id) >= 0 {
		return id
	}
	return c.rooms[0].ID
}

func (c *Core) room(id string) models.Room {
	if i := c.roomIndex(id); i >= 0 {
		return c.rooms[i]
	}
	return models.Room{ID: id, Name: id}
}

func (c *Core) roomsList() models.WSMessage {
	return models.WSMessage{Event: models.EventRoomsList, Payload: slices.Clone(c.rooms)}
}

func (c *Core) sendRooms(sessionID uuid.UUID) {
	c.out.SendTo(sessionID, c.roomsList())
}

// roomNotice tells the rest of the session's room that it arrived or left
func (c *Core) roomNotice(kind string, s *session) {
	c.out.BroadcastRoomExcept(models.WSMessage{
		Event: models.EventRoomNotice,
		Payload: models.WSRoomNoticePayload{
			Type:   kind,
			Room:   s.room,
			Name:   s.identity.DisplayName,
			SentAt: c.now().UTC(),
		},
	}, s.room, s.id)
}

// JoinRoom moves an identified session into another room and replays that
// room's history to it
func (c *Core) JoinRoom(sessionID uuid.UUID, room string) error {
	return c.do(func() {
		s, ok := c.sessions[sessionID]
		if !ok {
			return
		}
		if !s.identified {
			c.notice(sessionID, "Please identify first.")
			return
		}
		id := models.RoomID(room)
		if c.roomIndex(id) < 0 {
			c.sendError(sessionID, "Unknown room", "unknown_room")
			return
		}

		from := s.room
		moved := id != from
		if moved {
			c.roomNotice(models.RoomNoticeLeave, s)
			s.room = id
			c.out.Subscribe(sessionID, id)
			c.publishPresence(from)
		}

		c.out.SendTo(sessionID, models.WSMessage{
			Event:   models.EventRoomJoined,
			Payload: models.WSRoomJoinedPayload{Room: c.room(id)},
		})
		c.out.SendTo(sessionID, models.WSMessage{
			Event:   models.EventHistorySnapshot,
			Payload: c.history.ForRoom(id),
		})

		if moved {
			c.roomNotice(models.RoomNoticeJoin, s)
			c.publishPresence(id)
			c.logger.Info().
				Str("session", sessionID.String()).
				Str("token", s.identity.Token).
				Str("from", from).
				Str("room", id).
				Msg("Session changed room")
		}
	})
}

// CreateRoom adds a room for the rest of the process lifetime and sends the
// new room list to every session. An empty id is derived from name.
func (c *Core) CreateRoom(sessionID uuid.UUID, id, name, description string) error {
	return c.do(func() {
		s, ok := c.sessions[sessionID]
		if !ok {
			return
		}
		if !s.identified {
			c.notice(sessionID, "Please identify first.")
			return
		}
		if c.moderation.IsBanned(s.identity.Token) {
			c.notice(sessionID, "You are banned.")
			return
		}

		name = strings.TrimSpace(name)
		description = strings.TrimSpace(description)
		if id == "" {
			id = name
		}
		id = models.RoomID(id)
		if name == "" {
			name = id
		}
		if !models.ValidRoomID(id) ||
			utf8.RuneCountInString(name) > maxRoomNameLength ||
			utf8.RuneCountInString(description) > maxRoomDescriptionLength {
			c.sendError(sessionID, "Invalid room name", "invalid_room")
			return
		}
		if c.roomIndex(id) >= 0 {
			c.sendError(sessionID, "Room already exists", "room_exists")
			return
		}
		if len(c.rooms) >= c.opts.MaxRooms {
			c.sendError(sessionID, "Room limit reached", "room_limit")
			return
		}

		c.rooms = append(c.rooms, models.Room{ID: id, Name: name, Description: description})
		metrics.RoomsOpen.Set(float64(len(c.rooms)))
		c.out.BroadcastAll(c.roomsList())

		c.logger.Info().
			Str("token", s.identity.Token).
			Str("room", id).
			Msg("Room created")
	})
}

// Rooms returns the rooms sessions can join, configured ones first
func (c *Core) Rooms() ([]models.Room, error) {
	var out []models.Room
	err := c.do(func() {
		out = slices.Clone(c.rooms)
	})
	return out, err
}
