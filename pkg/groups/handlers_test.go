package groups

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troopbase/troopbase/pkg/access"
)

// twoTeamRegistry serves teams 10 (owner 5) and 11 (owner 6)
type twoTeamRegistry struct{}

func (twoTeamRegistry) GetTeam(ctx context.Context, teamID int64) (*access.TeamInfo, error) {
	switch teamID {
	case 10:
		return &access.TeamInfo{ID: 10, OwnerUserID: 5, EnabledModules: []access.Module{access.ModuleCRM}}, nil
	case 11:
		return &access.TeamInfo{ID: 11, OwnerUserID: 6, EnabledModules: []access.Module{access.ModuleCRM}}, nil
	}
	return nil, access.ErrTeamNotFound
}

func setupGroupHandlers(t *testing.T) (*mux.Router, *PostgresStore) {
	t.Helper()
	store := NewPostgresStore(setupTestDB(t))
	engine := access.NewEngine(twoTeamRegistry{}, store, nil, nil)
	router := mux.NewRouter()
	NewHandlers(store).RegisterRoutes(router, access.NewGuardMiddleware(engine))
	return router, store
}

func asOwner(req *http.Request, userID int64) *http.Request {
	return req.WithContext(access.ContextWithPrincipal(req.Context(), &access.Principal{UserID: userID}))
}

func TestGroupAdminFlow(t *testing.T) {
	router, store := setupGroupHandlers(t)

	body, _ := json.Marshal(map[string]string{"name": "leaders"})
	req := asOwner(httptest.NewRequest("POST", "/v1/teams/10/groups", bytes.NewReader(body)), 5)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var group Group
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&group))

	// Grant CRM with the supervision submodule.
	body, _ = json.Marshal(map[string]interface{}{"module": "crm", "submodules": []string{"supervision"}})
	req = asOwner(httptest.NewRequest("PUT", "/v1/teams/10/groups/1/grants", bytes.NewReader(body)), 5)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Add a member.
	body, _ = json.Marshal(map[string]int64{"user_id": 7})
	req = asOwner(httptest.NewRequest("POST", "/v1/teams/10/groups/1/members", bytes.NewReader(body)), 5)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	grants, err := store.GetUserGrants(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, access.ModuleCRM, grants[0].Module)

	// Revoke the grant by module name.
	req = asOwner(httptest.NewRequest("DELETE", "/v1/teams/10/groups/1/grants/crm", nil), 5)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	grants, err = store.GetUserGrants(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestGroupRoutesGuarded(t *testing.T) {
	router, _ := setupGroupHandlers(t)

	body, _ := json.Marshal(map[string]string{"name": "leaders"})

	// Ordinary member of the team is not an admin.
	req := asOwner(httptest.NewRequest("POST", "/v1/teams/10/groups", bytes.NewReader(body)), 7)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Unauthenticated.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/teams/10/groups", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGroupCrossTeamAccessHidden(t *testing.T) {
	router, store := setupGroupHandlers(t)

	group, err := store.CreateGroup(context.Background(), 10, &CreateGroupRequest{Name: "leaders"})
	require.NoError(t, err)

	// Team 11's owner addresses team 10's group through their own team path.
	req := asOwner(httptest.NewRequest("GET", "/v1/teams/11/groups/1/members", nil), 6)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err = store.GetGroup(context.Background(), group.ID)
	assert.NoError(t, err)
}
