package access

import "context"

// Role represents a platform-wide role carried by a principal.
// Roles are attached by the session subsystem; the engine never assigns them.
type Role string

const (
	// RolePlatformAdmin grants every module on every team, unconditionally
	RolePlatformAdmin Role = "platform:admin"
	// RoleTeamMember marks an ordinary platform user with no global privileges
	RoleTeamMember Role = "team:member"
)

// Module is a coarse-grained tenant feature area that can be enabled or
// disabled per team and granted per user group
type Module string

const (
	ModuleAdmin   Module = "admin"
	ModuleCRM     Module = "crm"
	ModuleFunding Module = "funding"
)

// AllModules returns every known module
func AllModules() []Module {
	return []Module{ModuleAdmin, ModuleCRM, ModuleFunding}
}

// Valid reports whether m is a known module
func (m Module) Valid() bool {
	switch m {
	case ModuleAdmin, ModuleCRM, ModuleFunding:
		return true
	}
	return false
}

// Submodule is a fine-grained capability within CRM gating visibility of
// specific contact fields
type Submodule string

const (
	SubmoduleSupervision Submodule = "supervision"
	SubmoduleEvents      Submodule = "events"
	SubmoduleShop        Submodule = "shop"
)

// AllSubmodules returns every known submodule in stable order
func AllSubmodules() []Submodule {
	return []Submodule{SubmoduleSupervision, SubmoduleEvents, SubmoduleShop}
}

// Valid reports whether s is a known submodule
func (s Submodule) Valid() bool {
	switch s {
	case SubmoduleSupervision, SubmoduleEvents, SubmoduleShop:
		return true
	}
	return false
}

// Principal is an already-authenticated caller. It is supplied by the session
// subsystem and is immutable for the lifetime of a request; the engine never
// performs authentication.
type Principal struct {
	UserID      int64  `json:"user_id"`
	GlobalRoles []Role `json:"global_roles,omitempty"`
}

// HasRole reports whether the principal carries the given global role
func (p *Principal) HasRole(role Role) bool {
	for _, r := range p.GlobalRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsPlatformAdmin reports whether the principal is a platform administrator
func (p *Principal) IsPlatformAdmin() bool {
	return p.HasRole(RolePlatformAdmin)
}

// GroupGrant is a single group's module grant within a team. A user's
// effective grants for a team are the union of the grants of every group the
// user belongs to on that team.
type GroupGrant struct {
	GroupID    int64       `json:"group_id"`
	TeamID     int64       `json:"team_id"`
	Module     Module      `json:"module"`
	Submodules []Submodule `json:"submodules,omitempty"`
}

// GrantSet is the flattened union of a user's group grants on one team:
// module → set of granted submodules. Produced by reduceGrants; duplicate
// grants across groups collapse into one entry.
type GrantSet map[Module]map[Submodule]struct{}

// HasModule reports whether any group granted the module
func (s GrantSet) HasModule(m Module) bool {
	_, ok := s[m]
	return ok
}

// HasSubmodule reports whether any group granted the submodule under the module
func (s GrantSet) HasSubmodule(m Module, sub Submodule) bool {
	subs, ok := s[m]
	if !ok {
		return false
	}
	_, ok = subs[sub]
	return ok
}

// TeamInfo is the engine's read-only view of a team: ownership plus the
// enabled-module set. The Team Registry applies the platform default set
// before returning; callers never see an unset module list.
type TeamInfo struct {
	ID             int64    `json:"id"`
	OwnerUserID    int64    `json:"owner_user_id"`
	EnabledModules []Module `json:"enabled_modules"`
}

// ModuleEnabled reports whether the module is switched on for this team
func (t *TeamInfo) ModuleEnabled(m Module) bool {
	for _, em := range t.EnabledModules {
		if em == m {
			return true
		}
	}
	return false
}

// TeamRegistry resolves a team identifier to ownership and enabled modules.
// Implementations must return ErrTeamNotFound for unknown teams and apply the
// platform default enabled-module set when a team has none recorded.
type TeamRegistry interface {
	GetTeam(ctx context.Context, teamID int64) (*TeamInfo, error)
}

// GrantStore resolves the group grants a user holds on a team. A user
// belonging to zero groups yields an empty slice, not an error.
type GrantStore interface {
	GetUserGrants(ctx context.Context, userID, teamID int64) ([]GroupGrant, error)
}

// Decision is the engine's admit/deny output for a single
// (principal, team, module) query. Never persisted, always recomputed.
type Decision struct {
	Allowed         bool   `json:"allowed"`
	IsOwner         bool   `json:"is_owner"`
	IsPlatformAdmin bool   `json:"is_platform_admin"`
	Reason          string `json:"reason,omitempty"`
}

// Decision reasons. Deny reasons keep a genuine denial apart from a missing
// team in logs and metrics without exposing identities.
const (
	ReasonPlatformAdmin  = "platform_admin"
	ReasonOwner          = "owner"
	ReasonGrant          = "grant"
	ReasonModuleDisabled = "module_disabled"
	ReasonNoGrant        = "no_grant"
	ReasonTeamNotFound   = "team_not_found"
)

// AdminDecision is the structured result of ResolveTeamAdminAccess. Callers
// rendering team-settings surfaces need owner and delegated-admin status
// separately, not just a single boolean.
type AdminDecision struct {
	IsOwner         bool `json:"is_owner"`
	IsAdmin         bool `json:"is_admin"`
	IsPlatformAdmin bool `json:"is_platform_admin"`
	Allowed         bool `json:"allowed"`
}
