package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/troopbase/troopbase/pkg/groups"
	"github.com/troopbase/troopbase/pkg/teams"
)

func newMigrateCommand() *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Apply database schema migrations",
		Flags:       flag.NewFlagSet("migrate", flag.ExitOnError),
		Run:         runMigrate,
	}

	cmd.Flags.String("db-url", os.Getenv("TROOP_POSTGRES_URL"), "PostgreSQL connection URL")

	return cmd
}

// migration is one schema step from any package, ordered by (source, version)
type migration struct {
	source      string
	version     int
	description string
	sql         string
}

func allMigrations() []migration {
	var all []migration
	for _, m := range teams.GetMigrations() {
		all = append(all, migration{source: "teams", version: m.Version, description: m.Description, sql: m.SQL})
	}
	for _, m := range groups.GetMigrations() {
		all = append(all, migration{source: "groups", version: m.Version, description: m.Description, sql: m.SQL})
	}
	return all
}

func runMigrate(args []string) error {
	cmd := newMigrateCommand()
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

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logger := logrus.New()
	return applyMigrations(db, logger)
}

// applyMigrations runs every pending migration in order, tracking applied
// steps in schema_migrations so reruns are no-ops
func applyMigrations(db *sql.DB, logger *logrus.Logger) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		source TEXT NOT NULL,
		version INTEGER NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (source, version)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range allMigrations() {
		var applied int
		err := db.QueryRow(
			`SELECT COUNT(*) FROM schema_migrations WHERE source = $1 AND version = $2`,
			m.source, m.version,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %s/%d: %w", m.source, m.version, err)
		}
		if applied > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %s/%d: %w", m.source, m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s/%d (%s) failed: %w", m.source, m.version, m.description, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (source, version) VALUES ($1, $2)`,
			m.source, m.version,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s/%d: %w", m.source, m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s/%d: %w", m.source, m.version, err)
		}

		logger.WithFields(logrus.Fields{
			"source":  m.source,
			"version": m.version,
		}).Infof("Applied: %s", m.description)
	}

	return nil
}
