package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tullo/modchat/internal/models"
)

func registerUserVerbs(r *Registry) {
	r.Register(&Descriptor{
		Name:    "stats",
		Usage:   "/stats",
		Summary: "View your message statistics",
		Execute: func(c *Context, args []string) error {
			c.Reply(fmt.Sprintf("Your stats:\nMessages sent: %d", c.History.CountBy(c.Caller.Token)))
			return nil
		},
	})

	r.Register(&Descriptor{
		Name:    "roll",
		Usage:   "/roll NdF",
		Summary: "Roll dice (e.g., /roll 2d6)",
		MinArgs: 1,
		Execute: roll,
	})

	r.Register(&Descriptor{
		Name:    "flip",
		Usage:   "/flip",
		Summary: "Flip a coin",
		Execute: func(c *Context, args []string) error {
			side := "Heads"
			if c.Rand.IntN(2) == 1 {
				side = "Tails"
			}
			return c.Announce(models.AuthorServer, c.Room,
				fmt.Sprintf("%s flipped a coin: %s", c.Caller.DisplayName, side))
		},
	})

	r.Register(&Descriptor{
		Name:    "help",
		Usage:   "/help",
		Summary: "Show this help message",
		Execute: func(c *Context, args []string) error {
			c.Reply(r.helpText(c.IsAdmin))
			return nil
		},
	})

	r.Register(&Descriptor{
		Name:    "hug",
		Usage:   "/hug <name>",
		Summary: "Hug someone who is online",
		MinArgs: 1,
		Execute: reaction("hug", "%s hugs %s"),
	})

	r.Register(&Descriptor{
		Name:    "slap",
		Usage:   "/slap <name>",
		Summary: "Slap someone who is online with a large trout",
		MinArgs: 1,
		Execute: reaction("slap", "%s slaps %s around a bit with a large trout"),
	})

	r.Register(&Descriptor{
		Name:    "online",
		Usage:   "/online",
		Summary: "List who is online",
		Execute: func(c *Context, args []string) error {
			online := c.Directory.Online()
			names := make([]string, len(online))
			for i, id := range online {
				names[i] = id.DisplayName
			}
			c.Reply("Online (" + strconv.Itoa(len(online)) + "): " + strings.Join(names, ", "))
			return nil
		},
	})
}

func roll(c *Context, args []string) error {
	dice, err := ParseDice(args[0])
	if err != nil {
		c.Reply(fmt.Sprintf("Invalid dice format. Use /roll NdF with up to %d dice of up to %d faces (e.g., /roll 2d6)", MaxDice, MaxFaces))
		return nil
	}

	results, total := dice.Roll(c.Rand)
	parts := make([]string, len(results))
	for i, v := range results {
		parts[i] = strconv.Itoa(v)
	}
	return c.Announce(models.AuthorServer, c.Room,
		fmt.Sprintf("%s rolled %s: %s (Total: %d)", c.Caller.DisplayName, dice, strings.Join(parts, ", "), total))
}

// reaction builds a verb that addresses another online identity in the
// caller's room
func reaction(verb, format string) func(c *Context, args []string) error {
	return func(c *Context, args []string) error {
		name := strings.Join(args, " ")
		target, ok := c.Directory.Find(name)
		if !ok {
			c.Reply(name + " is not online.")
			return nil
		}
		if target.Token == c.Caller.Token {
			c.Reply(fmt.Sprintf("You can't %s yourself.", verb))
			return nil
		}
		return c.Announce(models.AuthorServer, c.Room, fmt.Sprintf(format, c.Caller.DisplayName, target.DisplayName))
	}
}
