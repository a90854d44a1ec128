package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tullo/modchat/config"
	"github.com/tullo/modchat/internal/auth"
	"github.com/tullo/modchat/internal/database"
	"github.com/tullo/modchat/internal/repository"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "modctl",
		Usage: "operator tool for a modchat deployment",
	}
	app.Commands = []*cli.Command{
		{
			Name:  "migrate",
			Usage: "manage the Postgres schema",
			Subcommands: []*cli.Command{
				{
					Name:   "up",
					Usage:  "apply pending migrations",
					Action: runMigrateUp,
				},
				{
					Name:   "status",
					Usage:  "list applied migrations",
					Action: runMigrateStatus,
				},
			},
		},
		{
			Name:  "ticket",
			Usage: "issue identity tickets",
			Subcommands: []*cli.Command{
				{
					Name:  "mint",
					Usage: "mint a ticket for an existing token, e.g. one listed in ADMIN_TOKENS",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:     "token",
							Usage:    "identity token (uuid)",
							Required: true,
						},
					},
					Action: runTicketMint,
				},
				{
					Name:   "new",
					Usage:  "create a fresh identity token and its ticket",
					Action: runTicketNew,
				},
			},
		},
		{
			Name:      "dump",
			Usage:     "print a stored document from the configured backend",
			ArgsUsage: "bans|words|history",
			Action:    runDump,
		},
	}
	app.RunAndExitOnError()
}

func openDB() (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.NewPostgresDB(cfg.GetDSN())
}

func runMigrateUp(cctx *cli.Context) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db.DB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("Migrations completed successfully")
	return nil
}

func runMigrateStatus(cctx *cli.Context) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.AppliedMigrations(db.DB)
	if err != nil {
		return err
	}
	fmt.Println("Applied Migrations:")
	fmt.Println("-------------------")
	for _, m := range applied {
		fmt.Printf("Version %d - Applied at: %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	return nil
}

func jwtService() (*auth.JWTService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours), nil
}

// mintTicket signs a ticket for token after checking it is well formed
func mintTicket(svc *auth.JWTService, token string) (string, error) {
	if !auth.IsWellFormedToken(token) {
		return "", fmt.Errorf("token %q is not a uuid", token)
	}
	return svc.GenerateToken(token)
}

func printTicket(w io.Writer, token, ticket string) {
	fmt.Fprintf(w, "token:  %s\nticket: %s\n", token, ticket)
}

func runTicketMint(cctx *cli.Context) error {
	svc, err := jwtService()
	if err != nil {
		return err
	}
	token := cctx.String("token")
	ticket, err := mintTicket(svc, token)
	if err != nil {
		return err
	}
	printTicket(os.Stdout, token, ticket)
	return nil
}

func runTicketNew(cctx *cli.Context) error {
	svc, err := jwtService()
	if err != nil {
		return err
	}
	token := uuid.NewString()
	ticket, err := mintTicket(svc, token)
	if err != nil {
		return err
	}
	printTicket(os.Stdout, token, ticket)
	return nil
}

// documentKey maps dump arguments to store keys
func documentKey(name string) (string, error) {
	switch name {
	case "bans":
		return repository.KeyBans, nil
	case "words", "bannedwords":
		return repository.KeyBannedWords, nil
	case "history", "messages":
		return repository.KeyMessages, nil
	default:
		return "", fmt.Errorf("unknown document %q, want bans, words or history", name)
	}
}

func runDump(cctx *cli.Context) error {
	key, err := documentKey(cctx.Args().First())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := repository.Open(cctx.Context, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var doc json.RawMessage
	found, err := repository.LoadJSON(cctx.Context, store, key, &doc)
	if err != nil {
		return err
	}
	if !found {
		doc = json.RawMessage("[]")
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
