package access

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/troopbase/troopbase/pkg/httputil"
)

// GuardMiddleware provides HTTP guards backed by the engine. Every
// team-scoped route goes through one of these guards; there is no silent
// render path.
type GuardMiddleware struct {
	engine *Engine
}

// NewGuardMiddleware creates guard middleware over the engine
func NewGuardMiddleware(engine *Engine) *GuardMiddleware {
	return &GuardMiddleware{engine: engine}
}

// RequireModule creates middleware that admits the request only when the
// principal may use the module on the team addressed by the {team_id} path
// variable. Denials become 403; a failed store read becomes 503, never a 403.
func (g *GuardMiddleware) RequireModule(module Module) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			teamID, err := teamIDFromRequest(r)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid team ID")
				return
			}

			if err := g.engine.AssertModuleAccess(r.Context(), principal, teamID, module); err != nil {
				writeGuardError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTeamAdmin creates middleware that admits owners, delegated admins
// (ADMIN group grant), and platform admins.
func (g *GuardMiddleware) RequireTeamAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			teamID, err := teamIDFromRequest(r)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid team ID")
				return
			}

			decision, err := g.engine.ResolveTeamAdminAccess(r.Context(), principal.UserID, teamID, principal.GlobalRoles)
			if err != nil {
				writeGuardError(w, err)
				return
			}
			if !decision.Allowed {
				httputil.WriteForbidden(w, "team admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeGuardError(w http.ResponseWriter, err error) {
	switch {
	case IsDenied(err):
		httputil.WriteForbidden(w, "insufficient permissions")
	case IsStoreUnavailable(err):
		// Infrastructure fault, not a policy outcome.
		httputil.WriteServiceUnavailable(w, "access check unavailable")
	default:
		httputil.WriteInternalError(w, err)
	}
}

func teamIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["team_id"], 10, 64)
}
