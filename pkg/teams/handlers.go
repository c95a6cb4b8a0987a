package teams

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/troopbase/troopbase/pkg/access"
	"github.com/troopbase/troopbase/pkg/contextkeys"
	"github.com/troopbase/troopbase/pkg/httputil"
	"github.com/troopbase/troopbase/pkg/observability"
)

// Handlers provides HTTP handlers for team lifecycle and invitations
type Handlers struct {
	registry Registry
	logger   *observability.Logger
}

// NewHandlers creates team handlers
func NewHandlers(registry Registry, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{registry: registry, logger: logger}
}

// RegisterRoutes registers team routes. The guard wraps everything that
// manages an existing team; creation and invitation acceptance only need an
// authenticated principal. teamCtx, when non-nil, resolves the {team_id}
// path variable ahead of the read handler so it serves from the context.
func (h *Handlers) RegisterRoutes(router *mux.Router, guard *access.GuardMiddleware, teamCtx mux.MiddlewareFunc) {
	router.HandleFunc("/v1/teams", h.CreateTeam).Methods("POST")
	router.HandleFunc("/v1/teams", h.ListTeams).Methods("GET")
	router.HandleFunc("/v1/invitations/{token}/accept", h.AcceptInvitation).Methods("POST")

	getTeam := http.Handler(http.HandlerFunc(h.GetTeam))
	if teamCtx != nil {
		getTeam = teamCtx(getTeam)
	}

	admin := guard.RequireTeamAdmin()
	router.Handle("/v1/teams/{team_id}", getTeam).Methods("GET")
	router.Handle("/v1/teams/{team_id}", admin(http.HandlerFunc(h.UpdateTeam))).Methods("PATCH")
	router.Handle("/v1/teams/{team_id}", admin(http.HandlerFunc(h.DeleteTeam))).Methods("DELETE")
	router.Handle("/v1/teams/{team_id}/invitations", admin(http.HandlerFunc(h.CreateInvitation))).Methods("POST")
	router.Handle("/v1/teams/{team_id}/invitations", admin(http.HandlerFunc(h.ListInvitations))).Methods("GET")
	router.Handle("/v1/teams/{team_id}/invitations/{invitation_id}", admin(http.HandlerFunc(h.RevokeInvitation))).Methods("DELETE")
}

// CreateTeam creates a team owned by the caller
func (h *Handlers) CreateTeam(w http.ResponseWriter, r *http.Request) {
	principal := access.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req CreateTeamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	req.OwnerUserID = principal.UserID

	team, err := h.registry.CreateTeam(r.Context(), &req)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteCreated(w, team)
}

// ListTeams lists the caller's teams
func (h *Handlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	principal := access.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	teams, err := h.registry.ListTeamsForUser(r.Context(), principal.UserID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list teams")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"teams": teams})
}

// GetTeam returns a single team. Any authenticated caller may read basic
// team data; field-level protection only applies to module records.
func (h *Handlers) GetTeam(w http.ResponseWriter, r *http.Request) {
	if access.PrincipalFromContext(r.Context()) == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if team, ok := r.Context().Value(contextkeys.TeamKey).(*Team); ok {
		httputil.WriteSuccess(w, team)
		return
	}
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	team, err := h.registry.GetTeam(r.Context(), teamID)
	if err != nil {
		if errors.Is(err, access.ErrTeamNotFound) {
			httputil.WriteNotFound(w, "team not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, team)
}

// UpdateTeam applies partial updates, including the enabled-module set
func (h *Handlers) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	var req UpdateTeamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	team, err := h.registry.UpdateTeam(r.Context(), teamID, &req)
	if err != nil {
		if errors.Is(err, access.ErrTeamNotFound) {
			httputil.WriteNotFound(w, "team not found")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteSuccess(w, team)
}

// DeleteTeam soft deletes a team
func (h *Handlers) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	if err := h.registry.DeleteTeam(r.Context(), teamID); err != nil {
		if errors.Is(err, access.ErrTeamNotFound) {
			httputil.WriteNotFound(w, "team not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// CreateInvitation invites an email address to the team
func (h *Handlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	principal := access.PrincipalFromContext(r.Context())
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	inv, err := h.registry.CreateInvitation(r.Context(), teamID, req.Email, principal.UserID)
	if err != nil {
		if errors.Is(err, access.ErrTeamNotFound) {
			httputil.WriteNotFound(w, "team not found")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteCreated(w, inv)
}

// ListInvitations lists the team's invitations without tokens
func (h *Handlers) ListInvitations(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}

	invitations, err := h.registry.ListInvitations(r.Context(), teamID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"invitations": invitations})
}

// RevokeInvitation cancels a pending invitation
func (h *Handlers) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	teamID, err := httputil.PathInt64(r, "team_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team ID")
		return
	}
	invitationID, err := httputil.PathInt64(r, "invitation_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid invitation ID")
		return
	}

	if err := h.registry.RevokeInvitation(r.Context(), teamID, invitationID); err != nil {
		if errors.Is(err, ErrInvitationNotFound) {
			httputil.WriteNotFound(w, "invitation not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// AcceptInvitation redeems an invitation token for the caller
func (h *Handlers) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	principal := access.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	token := mux.Vars(r)["token"]

	inv, err := h.registry.AcceptInvitation(r.Context(), token, principal.UserID)
	if err != nil {
		if errors.Is(err, ErrInvitationNotFound) {
			httputil.WriteNotFound(w, "invitation not found")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	inv.Token = ""
	httputil.WriteSuccess(w, inv)
}
