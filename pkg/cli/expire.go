package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/troopbase/troopbase/pkg/teams"
)

func newExpireInvitationsCommand() *Command {
	cmd := &Command{
		Name:        "expire-invitations",
		Description: "Mark pending invitations past their deadline as expired",
		Flags:       flag.NewFlagSet("expire-invitations", flag.ExitOnError),
		Run:         runExpireInvitations,
	}

	cmd.Flags.String("db-url", os.Getenv("TROOP_POSTGRES_URL"), "PostgreSQL connection URL")

	return cmd
}

func runExpireInvitations(args []string) error {
	cmd := newExpireInvitationsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	dbURL := cmd.Flags.Lookup("db-url").Value.String()
	if dbURL == "" {
		return fmt.Errorf("db-url is required (or set TROOP_POSTGRES_URL)")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry := teams.NewPostgresRegistry(db)
	expired, err := registry.ExpireInvitations(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to expire invitations: %w", err)
	}

	logrus.WithField("expired", expired).Info("Invitation sweep complete")
	return nil
}
