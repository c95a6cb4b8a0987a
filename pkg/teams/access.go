package teams

import (
	"context"

	"github.com/troopbase/troopbase/pkg/access"
)

// registryAdapter exposes a Registry as the read-only view the access engine
// consumes
type registryAdapter struct {
	registry Registry
}

// AsAccessRegistry adapts a team Registry to access.TeamRegistry. The adapter
// narrows the surface to the single read a decision needs; the engine never
// sees lifecycle operations.
func AsAccessRegistry(registry Registry) access.TeamRegistry {
	return &registryAdapter{registry: registry}
}

func (a *registryAdapter) GetTeam(ctx context.Context, teamID int64) (*access.TeamInfo, error) {
	team, err := a.registry.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &access.TeamInfo{
		ID:             team.ID,
		OwnerUserID:    team.OwnerUserID,
		EnabledModules: team.EnabledModules,
	}, nil
}
