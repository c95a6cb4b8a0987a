package access

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handlersRouter() *mux.Router {
	registry := &fakeRegistry{teams: map[int64]*TeamInfo{
		10: {ID: 10, OwnerUserID: 5, EnabledModules: []Module{ModuleCRM}},
	}}
	grants := &fakeGrantStore{grants: map[int64][]GroupGrant{
		7: {{GroupID: 1, TeamID: 10, Module: ModuleCRM, Submodules: []Submodule{SubmoduleEvents}}},
	}}
	router := mux.NewRouter()
	NewHandlers(newTestEngine(registry, grants, nil)).RegisterRoutes(router)
	return router
}

func postCheck(t *testing.T, router *mux.Router, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/v1/access/check", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckModuleAccess(t *testing.T) {
	router := handlersRouter()

	rec := postCheck(t, router, map[string]interface{}{
		"user_id": 7, "team_id": 10, "module": "crm",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var decision Decision
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decision))
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonGrant, decision.Reason)

	rec = postCheck(t, router, map[string]interface{}{
		"user_id": 8, "team_id": 10, "module": "crm",
	})
	require.Equal(t, http.StatusOK, rec.Code, "a deny is still a successfully computed decision")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoGrant, decision.Reason)
}

func TestCheckModuleAccessValidation(t *testing.T) {
	router := handlersRouter()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing user", map[string]interface{}{"team_id": 10, "module": "crm"}},
		{"missing team", map[string]interface{}{"user_id": 7, "module": "crm"}},
		{"unknown module", map[string]interface{}{"user_id": 7, "team_id": 10, "module": "billing"}},
		{"unknown field", map[string]interface{}{"user_id": 7, "team_id": 10, "module": "crm", "extra": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCheck(t, router, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTeamAdminAccessEndpoint(t *testing.T) {
	router := handlersRouter()

	req := httptest.NewRequest("GET", "/v1/teams/10/admin-access", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), &Principal{UserID: 5}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var decision AdminDecision
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decision))
	assert.True(t, decision.IsOwner)
	assert.True(t, decision.Allowed)

	// Unauthenticated.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/teams/10/admin-access", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFieldMaskEndpoint(t *testing.T) {
	router := handlersRouter()

	req := httptest.NewRequest("GET", "/v1/teams/10/field-mask", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), &Principal{UserID: 7}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RecordKind string   `json:"record_kind"`
		Visible    bool     `json:"visible"`
		Fields     []string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "contact", resp.RecordKind)
	assert.True(t, resp.Visible)
	assert.Contains(t, resp.Fields, "event_attendance")
	assert.NotContains(t, resp.Fields, "medical_notes")
}

func TestFieldMaskEndpointNotVisible(t *testing.T) {
	router := handlersRouter()

	req := httptest.NewRequest("GET", "/v1/teams/10/field-mask", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), &Principal{UserID: 8}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Visible bool     `json:"visible"`
		Fields  []string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Visible)
	assert.Nil(t, resp.Fields)
}

func TestFieldMaskEndpointUnknownKind(t *testing.T) {
	router := handlersRouter()

	req := httptest.NewRequest("GET", "/v1/teams/10/field-mask?record_kind=invoice", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), &Principal{UserID: 7}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
