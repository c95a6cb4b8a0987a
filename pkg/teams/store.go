package teams

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/troopbase/troopbase/pkg/access"
)

// PostgresRegistry implements the Registry interface over database/sql. The
// statements avoid Postgres-only syntax where possible so the sqlite3 driver
// can run them in tests; enabled modules are stored as a JSON array in a TEXT
// column for the same reason.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry creates a new PostgresRegistry
func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// CreateTeam creates a new team owned by the requesting user
func (r *PostgresRegistry) CreateTeam(ctx context.Context, req *CreateTeamRequest) (*Team, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	if req.OwnerUserID == 0 {
		return nil, fmt.Errorf("owner user ID is required")
	}

	team := &Team{
		Name:        req.Name,
		Slug:        req.Slug,
		OwnerUserID: req.OwnerUserID,
		Status:      TeamStatusActive,
	}
	if team.Slug == "" {
		team.Slug = generateSlug(req.Name)
	}
	team.EnabledModules = req.EnabledModules
	if len(team.EnabledModules) == 0 {
		team.EnabledModules = DefaultEnabledModules()
	}
	for _, m := range team.EnabledModules {
		if !m.Valid() {
			return nil, fmt.Errorf("unknown module: %s", m)
		}
	}

	modulesJSON, err := json.Marshal(team.EnabledModules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enabled modules: %w", err)
	}

	query := `
		INSERT INTO teams (name, slug, owner_user_id, status, enabled_modules)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		team.Name, team.Slug, team.OwnerUserID, team.Status, string(modulesJSON),
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

const teamColumns = `id, name, slug, owner_user_id, status, enabled_modules, created_at, updated_at`

// GetTeam retrieves a team by ID. Returns access.ErrTeamNotFound for unknown
// or deleted teams so the access engine can apply its fail-closed policy.
func (r *PostgresRegistry) GetTeam(ctx context.Context, id int64) (*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1 AND status != $2`
	return r.scanTeam(r.db.QueryRowContext(ctx, query, id, TeamStatusDeleted))
}

// GetTeamBySlug retrieves a team by its URL slug
func (r *PostgresRegistry) GetTeamBySlug(ctx context.Context, slug string) (*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE slug = $1 AND status != $2`
	return r.scanTeam(r.db.QueryRowContext(ctx, query, slug, TeamStatusDeleted))
}

// ListTeamsForUser lists the teams a user owns or belongs to via a group
func (r *PostgresRegistry) ListTeamsForUser(ctx context.Context, userID int64) ([]*Team, error) {
	query := `
		SELECT DISTINCT t.id, t.name, t.slug, t.owner_user_id, t.status, t.enabled_modules, t.created_at, t.updated_at
		FROM teams t
		LEFT JOIN groups g ON g.team_id = t.id
		LEFT JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = $1
		WHERE t.status != $2 AND (t.owner_user_id = $1 OR gm.user_id IS NOT NULL)
		ORDER BY t.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, TeamStatusDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		team, err := r.scanTeamRow(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// UpdateTeam applies partial updates and returns the updated team
func (r *PostgresRegistry) UpdateTeam(ctx context.Context, id int64, updates *UpdateTeamRequest) (*Team, error) {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *updates.Name)
		argPos++
	}
	if updates.EnabledModules != nil {
		for _, m := range *updates.EnabledModules {
			if !m.Valid() {
				return nil, fmt.Errorf("unknown module: %s", m)
			}
		}
		modulesJSON, err := json.Marshal(*updates.EnabledModules)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal enabled modules: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("enabled_modules = $%d", argPos))
		args = append(args, string(modulesJSON))
		argPos++
	}

	if len(setClauses) == 0 {
		return r.GetTeam(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE teams SET %s WHERE id = $%d AND status != '%s'",
		strings.Join(setClauses, ", "), argPos, TeamStatusDeleted)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, access.ErrTeamNotFound
	}

	return r.GetTeam(ctx, id)
}

// DeleteTeam soft deletes a team. Access checks against it fail closed from
// this point on.
func (r *PostgresRegistry) DeleteTeam(ctx context.Context, id int64) error {
	query := `UPDATE teams SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND status != $1`
	result, err := r.db.ExecContext(ctx, query, TeamStatusDeleted, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return access.ErrTeamNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for team scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRegistry) scanTeam(row *sql.Row) (*Team, error) {
	team, err := r.scanTeamRow(row)
	if err == sql.ErrNoRows {
		return nil, access.ErrTeamNotFound
	}
	return team, err
}

func (r *PostgresRegistry) scanTeamRow(s scanner) (*Team, error) {
	team := &Team{}
	var modulesJSON sql.NullString
	err := s.Scan(
		&team.ID, &team.Name, &team.Slug, &team.OwnerUserID, &team.Status,
		&modulesJSON, &team.CreatedAt, &team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}

	if modulesJSON.Valid && modulesJSON.String != "" {
		if err := json.Unmarshal([]byte(modulesJSON.String), &team.EnabledModules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enabled modules: %w", err)
		}
	}
	// Teams that never recorded a module set get the platform default, so
	// readers always see a concrete list.
	if len(team.EnabledModules) == 0 {
		team.EnabledModules = DefaultEnabledModules()
	}
	return team, nil
}

// generateSlug derives a URL-safe slug from the team name with a random
// suffix to avoid collisions
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		}
		return -1
	}, slug)
	slug = strings.Trim(slug, "-")

	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err == nil {
		slug = slug + "-" + hex.EncodeToString(suffix)
	}
	return slug
}
