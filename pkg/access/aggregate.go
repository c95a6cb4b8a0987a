package access

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// fetchTeamAndGrants issues the two reads feeding a decision. The fan-out is
// fixed at two: the team lookup and the grant lookup are independent of each
// other, so they run concurrently and the engine waits for both. Cancelling
// ctx cancels both outstanding reads.
//
// ErrTeamNotFound passes through untouched so callers can apply the
// fail-closed policy; every other failure comes back as a *StoreError.
func (e *Engine) fetchTeamAndGrants(ctx context.Context, userID, teamID int64) (*TeamInfo, GrantSet, error) {
	var (
		team   *TeamInfo
		grants GrantSet
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := e.registry.GetTeam(ctx, teamID)
		if err != nil {
			if errors.Is(err, ErrTeamNotFound) {
				return err
			}
			return &StoreError{Op: "team lookup", Err: err}
		}
		team = t
		return nil
	})

	g.Go(func() error {
		gs, err := e.grants.GetUserGrants(ctx, userID, teamID)
		if err != nil {
			return &StoreError{Op: "grant lookup", Err: err}
		}
		grants = reduceGrants(gs, teamID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return team, grants, nil
}

// reduceGrants flattens group grants into the module → submodule-set union.
// Duplicate module grants across groups collapse; the result is independent
// of input order. Zero grants reduce to an empty set, not an error.
func reduceGrants(grants []GroupGrant, teamID int64) GrantSet {
	set := make(GrantSet, len(grants))
	for _, g := range grants {
		// A grant row scoped to a different team never contributes.
		if g.TeamID != 0 && g.TeamID != teamID {
			continue
		}
		subs, ok := set[g.Module]
		if !ok {
			subs = make(map[Submodule]struct{})
			set[g.Module] = subs
		}
		for _, s := range g.Submodules {
			subs[s] = struct{}{}
		}
	}
	return set
}
