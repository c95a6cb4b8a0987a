package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/troopbase/troopbase/pkg/access"
	"github.com/troopbase/troopbase/pkg/contextkeys"
	"github.com/troopbase/troopbase/pkg/httputil"
	"github.com/troopbase/troopbase/pkg/teams"
)

// TeamContext resolves the {team_id} path variable through the registry once
// and attaches the team to the request context. Handlers behind it read the
// team with TeamFromContext instead of re-querying.
func TeamContext(registry teams.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			teamID, err := httputil.PathInt64(r, "team_id")
			if err != nil {
				httputil.WriteBadRequest(w, "invalid team ID")
				return
			}

			team, err := registry.GetTeam(r.Context(), teamID)
			if err != nil {
				if errors.Is(err, access.ErrTeamNotFound) {
					httputil.WriteNotFound(w, "team not found")
					return
				}
				httputil.WriteServiceUnavailable(w, "team lookup unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.TeamKey, team)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TeamFromContext returns the team attached by TeamContext, or nil
func TeamFromContext(ctx context.Context) *teams.Team {
	team, _ := ctx.Value(contextkeys.TeamKey).(*teams.Team)
	return team
}
