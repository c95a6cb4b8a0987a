package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/troopbase/troopbase/pkg/access"
)

// ErrGroupNotFound indicates the group does not exist in the addressed team
var ErrGroupNotFound = fmt.Errorf("group not found")

// ErrGrantNotFound indicates the group holds no grant for the module
var ErrGrantNotFound = fmt.Errorf("grant not found")

// PostgresStore implements the Store interface over database/sql
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetUserGrants returns the raw grant rows of every group the user belongs to
// on the team. Zero memberships yield an empty result, not an error; the
// engine reduces the rows to an effective grant set.
func (s *PostgresStore) GetUserGrants(ctx context.Context, userID, teamID int64) ([]access.GroupGrant, error) {
	query := `
		SELECT gg.group_id, g.team_id, gg.module, gg.submodules
		FROM group_grants gg
		JOIN groups g ON g.id = gg.group_id
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1 AND g.team_id = $2
		ORDER BY gg.group_id, gg.module
	`
	rows, err := s.db.QueryContext(ctx, query, userID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user grants: %w", err)
	}
	defer rows.Close()

	grants := []access.GroupGrant{}
	for rows.Next() {
		var grant access.GroupGrant
		var submodulesJSON sql.NullString
		if err := rows.Scan(&grant.GroupID, &grant.TeamID, &grant.Module, &submodulesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		if submodulesJSON.Valid && submodulesJSON.String != "" {
			if err := json.Unmarshal([]byte(submodulesJSON.String), &grant.Submodules); err != nil {
				return nil, fmt.Errorf("failed to unmarshal submodules: %w", err)
			}
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

// CreateGroup creates a group within a team
func (s *PostgresStore) CreateGroup(ctx context.Context, teamID int64, req *CreateGroupRequest) (*Group, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	group := &Group{
		TeamID:      teamID,
		Name:        req.Name,
		Description: req.Description,
	}
	query := `
		INSERT INTO groups (team_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, group.TeamID, group.Name, group.Description).
		Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

// GetGroup retrieves a group by ID
func (s *PostgresStore) GetGroup(ctx context.Context, groupID int64) (*Group, error) {
	query := `SELECT id, team_id, name, description, created_at, updated_at FROM groups WHERE id = $1`
	group := &Group{}
	err := s.db.QueryRowContext(ctx, query, groupID).Scan(
		&group.ID, &group.TeamID, &group.Name, &group.Description,
		&group.CreatedAt, &group.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroups lists a team's groups
func (s *PostgresStore) ListGroups(ctx context.Context, teamID int64) ([]*Group, error) {
	query := `SELECT id, team_id, name, description, created_at, updated_at FROM groups WHERE team_id = $1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var result []*Group
	for rows.Next() {
		group := &Group{}
		if err := rows.Scan(
			&group.ID, &group.TeamID, &group.Name, &group.Description,
			&group.CreatedAt, &group.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		result = append(result, group)
	}
	return result, rows.Err()
}

// DeleteGroup removes a group with its memberships and grants. Every access
// the group conferred disappears on the next decision.
func (s *PostgresStore) DeleteGroup(ctx context.Context, teamID, groupID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = $1 AND team_id = $2`, groupID, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrGroupNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("failed to delete group members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_grants WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("failed to delete group grants: %w", err)
	}

	return tx.Commit()
}

// AddMember adds a user to a group. Adding an existing member is a no-op.
func (s *PostgresStore) AddMember(ctx context.Context, groupID, userID, addedBy int64) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}
	query := `
		INSERT INTO group_members (group_id, user_id, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, groupID, userID, addedBy); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a group. The user's decisions reflect the
// removal immediately; nothing is cached.
func (s *PostgresStore) RemoveMember(ctx context.Context, groupID, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %d is not a member of group %d", userID, groupID)
	}
	return nil
}

// ListMembers lists a group's members
func (s *PostgresStore) ListMembers(ctx context.Context, groupID int64) ([]*GroupMember, error) {
	query := `SELECT group_id, user_id, added_by, added_at FROM group_members WHERE group_id = $1 ORDER BY user_id`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*GroupMember
	for rows.Next() {
		member := &GroupMember{}
		if err := rows.Scan(&member.GroupID, &member.UserID, &member.AddedBy, &member.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// SetGrant assigns or replaces the group's grant for one module
func (s *PostgresStore) SetGrant(ctx context.Context, groupID int64, req *SetGrantRequest) (*access.GroupGrant, error) {
	if !req.Module.Valid() {
		return nil, fmt.Errorf("unknown module: %s", req.Module)
	}
	for _, sub := range req.Submodules {
		if !sub.Valid() {
			return nil, fmt.Errorf("unknown submodule: %s", sub)
		}
	}
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	submodulesJSON, err := json.Marshal(req.Submodules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submodules: %w", err)
	}

	query := `
		INSERT INTO group_grants (group_id, module, submodules)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, module) DO UPDATE SET submodules = EXCLUDED.submodules
	`
	if _, err := s.db.ExecContext(ctx, query, groupID, req.Module, string(submodulesJSON)); err != nil {
		return nil, fmt.Errorf("failed to set grant: %w", err)
	}

	return &access.GroupGrant{
		GroupID:    groupID,
		TeamID:     group.TeamID,
		Module:     req.Module,
		Submodules: req.Submodules,
	}, nil
}

// RemoveGrant revokes the group's grant for one module
func (s *PostgresStore) RemoveGrant(ctx context.Context, groupID int64, module access.Module) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM group_grants WHERE group_id = $1 AND module = $2`, groupID, module)
	if err != nil {
		return fmt.Errorf("failed to remove grant: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// ListGrants lists a group's grants
func (s *PostgresStore) ListGrants(ctx context.Context, groupID int64) ([]access.GroupGrant, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	query := `SELECT group_id, module, submodules FROM group_grants WHERE group_id = $1 ORDER BY module`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []access.GroupGrant
	for rows.Next() {
		grant := access.GroupGrant{TeamID: group.TeamID}
		var submodulesJSON sql.NullString
		if err := rows.Scan(&grant.GroupID, &grant.Module, &submodulesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		if submodulesJSON.Valid && submodulesJSON.String != "" {
			if err := json.Unmarshal([]byte(submodulesJSON.String), &grant.Submodules); err != nil {
				return nil, fmt.Errorf("failed to unmarshal submodules: %w", err)
			}
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}
