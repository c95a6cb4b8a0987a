package groups

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/troopbase/troopbase/pkg/access"
	"github.com/troopbase/troopbase/pkg/httputil"
)

// Handlers provides HTTP handlers for group administration. All routes are
// team-scoped and sit behind the team-admin guard.
type Handlers struct {
	store Store
}

// NewHandlers creates group handlers
func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes registers group routes under the team-admin guard
func (h *Handlers) RegisterRoutes(router *mux.Router, guard *access.GuardMiddleware) {
	admin := guard.RequireTeamAdmin()
	router.Handle("/v1/teams/{team_id}/groups", admin(http.HandlerFunc(h.CreateGroup))).Methods("POST")
	router.Handle("/v1/teams/{team_id}/groups", admin(http.HandlerFunc(h.ListGroups))).Methods("GET")
	router.Handle("/v1/teams/{team_id}/groups/{group_id}", admin(http.HandlerFunc(h.DeleteGroup))).Methods("DELETE")
	router.Handle("/v1/teams/{team_id}/groups/{group_id}/members", admin(http.HandlerFunc(h.AddMember))).Methods("POST")
	router.Handle("/v1/teams/{team_id}/groups/{group_id}/members", admin(http.HandlerFunc(h.ListMembers))).Methods("GET")
	router.Handle("/v1/teams/{team_id}/groups/{group_id}/members/{user_id}", admin(http.HandlerFunc(h.RemoveMember))).Methods("DELETE")
	router.Handle("/v1/teams/{team_id}/groups/{group_id}/grants", admin(http.HandlerFunc(h.SetGrant))).Methods("PUT")
	router.Handle("/v1/teams/{team_id}/groups/{group_id}/grants", admin(http.HandlerFunc(h.ListGrants))).Methods("GET")
	router.Handle("/v1/teams/{team_id}/groups/{group_id}/grants/{module}", admin(http.HandlerFunc(h.RemoveGrant))).Methods("DELETE")
}

// groupInTeam resolves the {group_id} path variable and verifies the group
// belongs to the addressed team, so one team's admin cannot manage another
// team's groups by ID.
func (h *Handlers) groupInTeam(w http.ResponseWriter, r *http.Request) (*Group, bool) {
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return nil, false
	}
	groupID, err := httputil.PathInt64(r, "group_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid group ID")
		return nil, false
	}

	group, err := h.store.GetGroup(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			httputil.WriteNotFound(w, "group not found")
		} else {
			httputil.WriteInternalError(w, err)
		}
		return nil, false
	}
	if group.TeamID != teamID {
		httputil.WriteNotFound(w, "group not found")
		return nil, false
	}
	return group, true
}

// CreateGroup creates a group within the team
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	var req CreateGroupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	group, err := h.store.CreateGroup(r.Context(), teamID, &req)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteCreated(w, group)
}

// ListGroups lists the team's groups
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	groups, err := h.store.ListGroups(r.Context(), teamID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"groups": groups})
}

// DeleteGroup removes a group and every grant it conferred
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := h.groupInTeam(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteGroup(r.Context(), group.TeamID, group.ID); err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			httputil.WriteNotFound(w, "group not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// AddMember adds a user to the group
func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	group, ok := h.groupInTeam(w, r)
	if !ok {
		return
	}
	principal := access.PrincipalFromContext(r.Context())

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.UserID == 0 {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	if err := h.store.AddMember(r.Context(), group.ID, req.UserID, principal.UserID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListMembers lists the group's members
func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	group, ok := h.groupInTeam(w, r)
	if !ok {
		return
	}

	members, err := h.store.ListMembers(r.Context(), group.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"members": members})
}

// RemoveMember removes a user from the group, taking effect on the user's
// next decision
func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	group, ok := h.groupInTeam(w, r)
	if !ok {
		return
	}
	userID, err := httputil.PathInt64(r, "user_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user ID")
		return
	}

	if err := h.store.RemoveMember(r.Context(), group.ID, userID); err != nil {
		httputil.WriteNotFound(w, err.Error())
		return
	}
	httputil.WriteNoContent(w)
}

// SetGrant assigns or replaces the group's grant for one module
func (h *Handlers) SetGrant(w http.ResponseWriter, r *http.Request) {
	group, ok := h.groupInTeam(w, r)
	if !ok {
		return
	}

	var req SetGrantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	grant, err := h.store.SetGrant(r.Context(), group.ID, &req)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteSuccess(w, grant)
}

// ListGrants lists the group's grants
func (h *Handlers) ListGrants(w http.ResponseWriter, r *http.Request) {
	group, ok := h.groupInTeam(w, r)
	if !ok {
		return
	}

	grants, err := h.store.ListGrants(r.Context(), group.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"grants": grants})
}

// RemoveGrant revokes the group's grant for one module
func (h *Handlers) RemoveGrant(w http.ResponseWriter, r *http.Request) {
	group, ok := h.groupInTeam(w, r)
	if !ok {
		return
	}
	module := access.Module(mux.Vars(r)["module"])
	if !module.Valid() {
		httputil.WriteBadRequest(w, "unknown module")
		return
	}

	if err := h.store.RemoveGrant(r.Context(), group.ID, module); err != nil {
		if errors.Is(err, ErrGrantNotFound) {
			httputil.WriteNotFound(w, "grant not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
