package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tullo/modchat/internal/models"
)

const defaultBanReason = "No reason provided"

func registerAdminVerbs(r *Registry) {
	admin := func(d *Descriptor) {
		d.RequiresAdmin = true
		r.Register(d)
	}

	admin(&Descriptor{
		Name:    "ban",
		Usage:   "/ban <token> [reason]",
		Summary: "Ban a user",
		MinArgs: 1,
		Execute: ban,
	})
	admin(&Descriptor{
		Name:    "unban",
		Usage:   "/unban <token>",
		Summary: "Unban a user",
		MinArgs: 1,
		Execute: unban,
	})
	admin(&Descriptor{
		Name:    "mute",
		Usage:   "/mute <token> [duration]",
		Summary: "Mute a user (e.g., 30s, 10m, 1h)",
		MinArgs: 1,
		Execute: mute,
	})
	admin(&Descriptor{
		Name:    "unmute",
		Usage:   "/unmute <token>",
		Summary: "Lift a mute early",
		MinArgs: 1,
		Execute: unmute,
	})
	admin(&Descriptor{
		Name:    "kick",
		Usage:   "/kick <token>",
		Summary: "Disconnect every session of a user",
		MinArgs: 1,
		Execute: kick,
	})
	admin(&Descriptor{
		Name:    "clear",
		Usage:   "/clear <token>",
		Summary: "Clear all messages from a user",
		MinArgs: 1,
		Execute: clearUser,
	})
	admin(&Descriptor{
		Name:    "purge",
		Usage:   "/purge",
		Summary: "Clear all chat history",
		Execute: purge,
	})
	admin(&Descriptor{
		Name:    "addbannedword",
		Usage:   "/addbannedword <word>",
		Summary: "Add word to ban list",
		MinArgs: 1,
		Execute: addBannedWord,
	})
	admin(&Descriptor{
		Name:    "removebannedword",
		Usage:   "/removebannedword <word>",
		Summary: "Remove word from ban list",
		MinArgs: 1,
		Execute: removeBannedWord,
	})
	admin(&Descriptor{
		Name:    "say",
		Usage:   "/say <text>",
		Summary: "Announce as the server",
		MinArgs: 1,
		Execute: func(c *Context, args []string) error {
			return c.Announce(models.AuthorServer, "", strings.Join(args, " "))
		},
	})
	admin(&Descriptor{
		Name:    "bans",
		Usage:   "/bans",
		Summary: "List active bans",
		Execute: listBans,
	})
	admin(&Descriptor{
		Name:    "bannedwords",
		Usage:   "/bannedwords",
		Summary: "List banned words",
		Execute: func(c *Context, args []string) error {
			words := c.Moderation.BannedWords()
			if len(words) == 0 {
				c.Reply("No banned words.")
				return nil
			}
			c.Reply("Banned words: " + strings.Join(words, ", "))
			return nil
		},
	})
}

func ban(c *Context, args []string) error {
	token := args[0]
	reason := strings.Join(args[1:], " ")
	if reason == "" {
		reason = defaultBanReason
	}
	name := targetName(c, token)

	before := c.Moderation.Bans()
	created, err := c.Moderation.Ban(c.Ctx, token, name, reason)
	if err != nil {
		return err
	}
	if !created {
		c.Reply(name + " is already banned.")
		return nil
	}
	if err := c.Announce(models.AuthorAutoMod, "", fmt.Sprintf("%s has been manually banned for %s", name, reason)); err != nil {
		return revert(err, "the ban on "+name, func() error { return c.Moderation.ReplaceBans(c.Ctx, before) })
	}
	return nil
}

func unban(c *Context, args []string) error {
	before := c.Moderation.Bans()
	record, err := c.Moderation.Unban(c.Ctx, args[0])
	if err != nil {
		return err
	}
	if record == nil {
		c.Reply("User not found in ban list.")
		return nil
	}
	name := record.DisplayName
	if name == "" {
		name = "Unknown"
	}
	if err := c.Announce(models.AuthorAutoMod, "", name+" has been unbanned."); err != nil {
		return revert(err, "the unban of "+name, func() error { return c.Moderation.ReplaceBans(c.Ctx, before) })
	}
	return nil
}

// Mutes and kicks are not persisted, so they are announced first and applied
// only once the announcement is stored.

func mute(c *Context, args []string) error {
	token := args[0]
	d := c.DefaultMute
	if len(args) > 1 {
		d = ParseMuteDuration(args[1], c.DefaultMute)
	}
	err := c.Announce(models.AuthorServer, "",
		fmt.Sprintf("%s has been muted for %s", targetName(c, token), FormatMuteDuration(d)))
	if err != nil {
		return err
	}
	c.Moderation.Mute(token, d)
	return nil
}

func unmute(c *Context, args []string) error {
	token := args[0]
	name := targetName(c, token)
	if muted, _ := c.Moderation.IsMuted(token); !muted {
		c.Reply(name + " is not muted.")
		return nil
	}
	if err := c.Announce(models.AuthorServer, "", name+" has been unmuted."); err != nil {
		return err
	}
	c.Moderation.Unmute(token)
	return nil
}

func kick(c *Context, args []string) error {
	token := args[0]
	name := targetName(c, token)
	if !isOnline(c, token) {
		c.Reply(name + " is not online.")
		return nil
	}
	if err := c.Announce(models.AuthorServer, "", name+" has been kicked."); err != nil {
		return err
	}
	c.Directory.Kick(token)
	return nil
}

func isOnline(c *Context, token string) bool {
	return slices.ContainsFunc(c.Directory.Online(), func(id models.Identity) bool { return id.Token == token })
}

// clearUser and purge store the announcement in the same history write as
// the change itself.

func clearUser(c *Context, args []string) error {
	token := args[0]
	name := targetName(c, token)
	n := c.History.CountBy(token)
	if n == 0 {
		c.Reply(fmt.Sprintf("No messages from %s to clear.", name))
		return nil
	}

	m := c.announcement(models.AuthorServer, "", fmt.Sprintf("All messages from %s cleared (%d removed)", name, n))
	if _, err := c.History.ClearFor(c.Ctx, token, m); err != nil {
		return err
	}
	c.Publish(m)
	return nil
}

func purge(c *Context, args []string) error {
	m := c.announcement(models.AuthorServer, "", "Chat history purged")
	if err := c.History.PurgeAll(c.Ctx, m); err != nil {
		return err
	}
	c.Publish(m)
	return nil
}

func addBannedWord(c *Context, args []string) error {
	word := args[0]
	before := c.Moderation.BannedWords()
	added, err := c.Moderation.AddBannedWord(c.Ctx, word)
	if err != nil {
		return err
	}
	if !added {
		c.Reply(fmt.Sprintf("%q is already a banned word.", word))
		return nil
	}
	if err := c.Announce(models.AuthorServer, "", "Banned word list updated."); err != nil {
		return revert(err, "the banned word list change", func() error { return c.Moderation.ReplaceBannedWords(c.Ctx, before) })
	}
	return nil
}

func removeBannedWord(c *Context, args []string) error {
	word := args[0]
	before := c.Moderation.BannedWords()
	removed, err := c.Moderation.RemoveBannedWord(c.Ctx, word)
	if err != nil {
		return err
	}
	if !removed {
		c.Reply(fmt.Sprintf("%q is not in the banned word list.", word))
		return nil
	}
	if err := c.Announce(models.AuthorServer, "", "Banned word list updated."); err != nil {
		return revert(err, "the banned word list change", func() error { return c.Moderation.ReplaceBannedWords(c.Ctx, before) })
	}
	return nil
}

// revert undoes a persisted change whose announcement could not be stored. If
// the undo fails as well, the error says the change is still in effect.
func revert(announceErr error, change string, undo func() error) error {
	if err := undo(); err != nil {
		return fmt.Errorf("%w; %s is still in effect but was not announced (undo failed: %v)", announceErr, change, err)
	}
	return fmt.Errorf("%w; %s was undone", announceErr, change)
}

func listBans(c *Context, args []string) error {
	bans := c.Moderation.Bans()
	if len(bans) == 0 {
		c.Reply("No active bans.")
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Bans (%d):", len(bans))
	for _, rec := range bans {
		fmt.Fprintf(&b, "\n  %s (%s): %s", rec.DisplayName, rec.Token, rec.Reason)
	}
	c.Reply(b.String())
	return nil
}
