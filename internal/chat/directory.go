package chat

import (
	"slices"
	"strings"

	"github.com/tullo/modchat/internal/models"
)

// directory exposes the session table to commands. It is only used from the
// core goroutine.
type directory struct {
	c *Core
}

func (d directory) Online() []models.Identity {
	return d.c.onlineIn("")
}

func (d directory) Find(nameOrToken string) (models.Identity, bool) {
	online := d.c.onlineIn("")
	for _, id := range online {
		if id.Token == nameOrToken {
			return id, true
		}
	}
	for _, id := range online {
		if strings.EqualFold(id.DisplayName, nameOrToken) {
			return id, true
		}
	}
	return models.Identity{}, false
}

func (d directory) Kick(token string) int {
	n := 0
	rooms := make(map[string]bool)
	for _, s := range d.c.sessions {
		if s.identified && s.identity.Token == token {
			d.c.dropSession(s)
			d.c.out.ForceDisconnect(s.id)
			d.c.roomNotice(models.RoomNoticeLeave, s)
			rooms[s.room] = true
			n++
		}
	}
	for room := range rooms {
		d.c.publishPresence(room)
	}
	return n
}

// onlineIn lists identified identities once each, sorted by display name. An
// empty room means every room.
func (c *Core) onlineIn(room string) []models.Identity {
	seen := make(map[string]bool)
	var out []models.Identity
	for _, s := range c.sessions {
		if !s.identified || (room != "" && s.room != room) || seen[s.identity.Token] {
			continue
		}
		seen[s.identity.Token] = true
		out = append(out, s.identity)
	}
	slices.SortFunc(out, func(a, b models.Identity) int {
		if n := strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)); n != 0 {
			return n
		}
		return strings.Compare(a.Token, b.Token)
	})
	return out
}
