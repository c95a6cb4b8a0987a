package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/troopbase/troopbase/pkg/access"
	"github.com/troopbase/troopbase/pkg/groups"
	"github.com/troopbase/troopbase/pkg/observability"
	"github.com/troopbase/troopbase/pkg/session"
	"github.com/troopbase/troopbase/pkg/teams"
)

// stubTeams serves one team; the embedded interface covers the methods the
// tests never reach
type stubTeams struct {
	teams.Registry
	team *teams.Team
}

func (s *stubTeams) GetTeam(ctx context.Context, id int64) (*teams.Team, error) {
	if s.team == nil || s.team.ID != id {
		return nil, access.ErrTeamNotFound
	}
	return s.team, nil
}

type stubGroups struct {
	groups.Store
	grants []access.GroupGrant
}

func (s *stubGroups) GetUserGrants(ctx context.Context, userID, teamID int64) ([]access.GroupGrant, error) {
	return s.grants, nil
}

type stubSessions struct {
	principals map[string]*access.Principal
}

func (s *stubSessions) Create(ctx context.Context, principal *access.Principal) (string, error) {
	return "", nil
}

func (s *stubSessions) Get(ctx context.Context, sessionID string) (*access.Principal, error) {
	if p, ok := s.principals[sessionID]; ok {
		return p, nil
	}
	return nil, session.ErrSessionNotFound
}

func (s *stubSessions) Delete(ctx context.Context, sessionID string) error {
	return nil
}

func testServer(t *testing.T) *Server {
	t.Helper()

	registry := &stubTeams{team: &teams.Team{
		ID:             10,
		Name:           "Rovers",
		OwnerUserID:    5,
		EnabledModules: []access.Module{access.ModuleCRM},
	}}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	engine := access.NewEngine(teams.AsAccessRegistry(registry), &stubGroups{}, logger, nil)

	return NewServer(Options{
		Logger:   logger,
		Engine:   engine,
		Teams:    registry,
		Groups:   &stubGroups{},
		Sessions: &stubSessions{principals: map[string]*access.Principal{
			"owner-session": {UserID: 5},
			"other-session": {UserID: 6},
		}},
	})
}

func TestServerResolvesSessionThroughChain(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest("GET", "/v1/teams/10", nil)
	req.Header.Set("Authorization", "Bearer owner-session")

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var team teams.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &team))
	assert.Equal(t, "Rovers", team.Name)
}

func TestServerRejectsUnauthenticated(t *testing.T) {
	server := testServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/teams/10", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServerGuardsAdminRoutes(t *testing.T) {
	server := testServer(t)

	// A non-owner with a valid session cannot modify the team.
	req := httptest.NewRequest("PATCH", "/v1/teams/10", strings.NewReader(`{"name":"Raiders"}`))
	req.Header.Set("Authorization", "Bearer other-session")

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServerAccessCheckEndpoint(t *testing.T) {
	server := testServer(t)

	payload := `{"user_id": 5, "team_id": 10, "module": "crm"}`
	req := httptest.NewRequest("POST", "/v1/access/check", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer owner-session")
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var decision access.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.True(t, decision.Allowed)
	assert.True(t, decision.IsOwner)
}

func TestServerRecordsHTTPMetrics(t *testing.T) {
	registry := &stubTeams{team: &teams.Team{ID: 10, OwnerUserID: 5}}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	engine := access.NewEngine(teams.AsAccessRegistry(registry), &stubGroups{}, logger, nil)

	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)

	server := NewServer(Options{
		Logger:  logger,
		Engine:  engine,
		Teams:   registry,
		Groups:  &stubGroups{},
		Metrics: metrics,
	})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/teams/10", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	serveMux := http.NewServeMux()
	observability.RegisterMetricsEndpoint(serveMux, promRegistry)
	metricsRec := httptest.NewRecorder()
	serveMux.ServeHTTP(metricsRec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, metricsRec.Body.String(), "troopbase_http_requests_total")
}
