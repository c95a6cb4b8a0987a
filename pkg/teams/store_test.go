package teams

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troopbase/troopbase/pkg/access"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Minimal sqlite-compatible copies of the production tables.
	_, err = db.Exec(`
		CREATE TABLE teams (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			owner_user_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			enabled_modules TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE team_invitations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id INTEGER NOT NULL,
			email TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			invited_by INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			accepted_at TIMESTAMP
		);

		CREATE TABLE groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id INTEGER NOT NULL,
			name TEXT NOT NULL
		);

		CREATE TABLE group_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)
	return db
}

func TestCreateTeamDefaults(t *testing.T) {
	registry := NewPostgresRegistry(setupTestDB(t))

	team, err := registry.CreateTeam(context.Background(), &CreateTeamRequest{
		Name:        "14th Scout Troop",
		OwnerUserID: 5,
	})
	require.NoError(t, err)
	assert.NotZero(t, team.ID)
	assert.Equal(t, TeamStatusActive, team.Status)
	assert.NotEmpty(t, team.Slug)
	assert.Equal(t, DefaultEnabledModules(), team.EnabledModules,
		"a team created without a module set gets the platform default")
	assert.False(t, team.CreatedAt.IsZero())
}

func TestCreateTeamValidation(t *testing.T) {
	registry := NewPostgresRegistry(setupTestDB(t))

	_, err := registry.CreateTeam(context.Background(), &CreateTeamRequest{OwnerUserID: 5})
	assert.Error(t, err)

	_, err = registry.CreateTeam(context.Background(), &CreateTeamRequest{Name: "x"})
	assert.Error(t, err)

	_, err = registry.CreateTeam(context.Background(), &CreateTeamRequest{
		Name: "x", OwnerUserID: 5,
		EnabledModules: []access.Module{"billing"},
	})
	assert.Error(t, err)
}

func TestGetTeamRoundTrip(t *testing.T) {
	registry := NewPostgresRegistry(setupTestDB(t))

	created, err := registry.CreateTeam(context.Background(), &CreateTeamRequest{
		Name:           "Sea Scouts",
		OwnerUserID:    5,
		EnabledModules: []access.Module{access.ModuleCRM, access.ModuleFunding},
	})
	require.NoError(t, err)

	got, err := registry.GetTeam(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, int64(5), got.OwnerUserID)
	assert.Equal(t, []access.Module{access.ModuleCRM, access.ModuleFunding}, got.EnabledModules)

	bySlug, err := registry.GetTeamBySlug(context.Background(), created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
}

func TestGetTeamNotFound(t *testing.T) {
	registry := NewPostgresRegistry(setupTestDB(t))

	_, err := registry.GetTeam(context.Background(), 404)
	assert.ErrorIs(t, err, access.ErrTeamNotFound)
}

func TestUpdateTeamEnabledModules(t *testing.T) {
	registry := NewPostgresRegistry(setupTestDB(t))
	team, err := registry.CreateTeam(context.Background(), &CreateTeamRequest{
		Name: "Rovers", OwnerUserID: 5,
	})
	require.NoError(t, err)

	modules := []access.Module{access.ModuleCRM}
	updated, err := registry.UpdateTeam(context.Background(), team.ID, &UpdateTeamRequest{
		EnabledModules: &modules,
	})
	require.NoError(t, err)
	assert.Equal(t, modules, updated.EnabledModules)

	// Empty update is a no-op read.
	same, err := registry.UpdateTeam(context.Background(), team.ID, &UpdateTeamRequest{})
	require.NoError(t, err)
	assert.Equal(t, updated.EnabledModules, same.EnabledModules)

	_, err = registry.UpdateTeam(context.Background(), 404, &UpdateTeamRequest{EnabledModules: &modules})
	assert.ErrorIs(t, err, access.ErrTeamNotFound)
}

func TestUpdateTeamRejectsUnknownModule(t *testing.T) {
	registry := NewPostgresRegistry(setupTestDB(t))
	team, err := registry.CreateTeam(context.Background(), &CreateTeamRequest{Name: "Rovers", OwnerUserID: 5})
	require.NoError(t, err)

	bad := []access.Module{"billing"}
	_, err = registry.UpdateTeam(context.Background(), team.ID, &UpdateTeamRequest{EnabledModules: &bad})
	assert.Error(t, err)
}

func TestDeleteTeamFailsClosed(t *testing.T) {
	registry := NewPostgresRegistry(setupTestDB(t))
	team, err := registry.CreateTeam(context.Background(), &CreateTeamRequest{Name: "Rovers", OwnerUserID: 5})
	require.NoError(t, err)

	require.NoError(t, registry.DeleteTeam(context.Background(), team.ID))

	_, err = registry.GetTeam(context.Background(), team.ID)
	assert.ErrorIs(t, err, access.ErrTeamNotFound, "a deleted team must look missing to the access engine")

	assert.ErrorIs(t, registry.DeleteTeam(context.Background(), team.ID), access.ErrTeamNotFound)
}

func TestListTeamsForUser(t *testing.T) {
	db := setupTestDB(t)
	registry := NewPostgresRegistry(db)
	ctx := context.Background()

	owned, err := registry.CreateTeam(ctx, &CreateTeamRequest{Name: "Owned", OwnerUserID: 5})
	require.NoError(t, err)
	member, err := registry.CreateTeam(ctx, &CreateTeamRequest{Name: "Member", OwnerUserID: 6})
	require.NoError(t, err)
	_, err = registry.CreateTeam(ctx, &CreateTeamRequest{Name: "Other", OwnerUserID: 7})
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO groups (id, team_id, name) VALUES (1, $1, 'leaders')`, member.ID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO group_members (group_id, user_id) VALUES (1, 5)`)
	require.NoError(t, err)

	teams, err := registry.ListTeamsForUser(ctx, 5)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, owned.ID, teams[0].ID)
	assert.Equal(t, member.ID, teams[1].ID)
}

func TestAccessRegistryAdapter(t *testing.T) {
	registry := NewPostgresRegistry(setupTestDB(t))
	team, err := registry.CreateTeam(context.Background(), &CreateTeamRequest{
		Name: "Rovers", OwnerUserID: 5,
		EnabledModules: []access.Module{access.ModuleCRM},
	})
	require.NoError(t, err)

	adapter := AsAccessRegistry(registry)
	info, err := adapter.GetTeam(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, info.ID)
	assert.Equal(t, int64(5), info.OwnerUserID)
	assert.True(t, info.ModuleEnabled(access.ModuleCRM))
	assert.False(t, info.ModuleEnabled(access.ModuleFunding))

	_, err = adapter.GetTeam(context.Background(), 404)
	assert.ErrorIs(t, err, access.ErrTeamNotFound)
}
