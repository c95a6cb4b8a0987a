package access

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/troopbase/troopbase/pkg/httputil"
)

// Handlers exposes the engine's function-call surface over HTTP for non-Go
// consumers of the platform (page guards in other services, background jobs).
type Handlers struct {
	engine *Engine
}

// NewHandlers creates access check handlers
func NewHandlers(engine *Engine) *Handlers {
	return &Handlers{engine: engine}
}

// RegisterRoutes registers the access check routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/access/check", h.CheckModuleAccess).Methods("POST")
	router.HandleFunc("/v1/teams/{team_id}/admin-access", h.TeamAdminAccess).Methods("GET")
	router.HandleFunc("/v1/teams/{team_id}/field-mask", h.FieldMask).Methods("GET")
}

// CheckModuleAccess resolves a module access decision for an explicit
// principal. Intended for trusted internal callers that already hold a
// verified identity (the check itself carries no side effects).
func (h *Handlers) CheckModuleAccess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      int64  `json:"user_id"`
		GlobalRoles []Role `json:"global_roles,omitempty"`
		TeamID      int64  `json:"team_id"`
		Module      Module `json:"module"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.UserID == 0 || req.TeamID == 0 {
		httputil.WriteBadRequest(w, "user_id and team_id are required")
		return
	}
	if !req.Module.Valid() {
		httputil.WriteBadRequest(w, "unknown module")
		return
	}

	principal := &Principal{UserID: req.UserID, GlobalRoles: req.GlobalRoles}
	decision, err := h.engine.ResolveModuleAccess(r.Context(), principal, req.TeamID, req.Module)
	if err != nil {
		writeGuardError(w, err)
		return
	}
	httputil.WriteSuccess(w, decision)
}

// TeamAdminAccess resolves the admin tri-state for the authenticated
// principal on the addressed team.
func (h *Handlers) TeamAdminAccess(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	decision, err := h.engine.ResolveTeamAdminAccess(r.Context(), principal.UserID, teamID, principal.GlobalRoles)
	if err != nil {
		writeGuardError(w, err)
		return
	}
	httputil.WriteSuccess(w, decision)
}

// FieldMask resolves the visible field set of a CRM-gated record kind for the
// authenticated principal. An empty field list with visible=false means the
// record must not be shown at all.
func (h *Handlers) FieldMask(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	kind := RecordKind(r.URL.Query().Get("record_kind"))
	if kind == "" {
		kind = RecordKindContact
	}

	fields, err := h.engine.ResolveFieldMask(r.Context(), principal, teamID, kind)
	if err != nil {
		if errors.Is(err, ErrUnknownRecordKind) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		writeGuardError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"record_kind": kind,
		"visible":     fields != nil,
		"fields":      fields,
	})
}
