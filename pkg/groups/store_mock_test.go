package groups

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troopbase/troopbase/pkg/access"
)

func TestGetUserGrantsQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT gg.group_id").
		WithArgs(int64(7), int64(10)).
		WillReturnError(fmt.Errorf("connection reset"))

	store := NewPostgresStore(db)
	_, err = store.GetUserGrants(context.Background(), 7, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query user grants")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserGrantsMalformedSubmodules(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"group_id", "team_id", "module", "submodules"}).
		AddRow(1, 10, "crm", "{not json")
	mock.ExpectQuery("SELECT gg.group_id").
		WithArgs(int64(7), int64(10)).
		WillReturnRows(rows)

	store := NewPostgresStore(db)
	_, err = store.GetUserGrants(context.Background(), 7, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal submodules")
}

func TestGetUserGrantsNullSubmodules(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"group_id", "team_id", "module", "submodules"}).
		AddRow(1, 10, "crm", nil)
	mock.ExpectQuery("SELECT gg.group_id").
		WithArgs(int64(7), int64(10)).
		WillReturnRows(rows)

	store := NewPostgresStore(db)
	grants, err := store.GetUserGrants(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, access.ModuleCRM, grants[0].Module)
	assert.Empty(t, grants[0].Submodules)
}
