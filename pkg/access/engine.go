package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/troopbase/troopbase/pkg/observability"
)

// DecisionRecorder receives decision telemetry. Implemented by
// observability.Metrics; a nil recorder disables recording.
type DecisionRecorder interface {
	RecordAccessDecision(module, outcome, reason string)
}

// Engine resolves access decisions for (principal, team, module) queries.
// It is stateless between calls: every decision is a fresh resolution over
// freshly read inputs, so a grant revoked a moment ago is honored on the very
// next request. The engine holds no cache and no mutable state.
type Engine struct {
	registry TeamRegistry
	grants   GrantStore
	logger   *observability.Logger
	recorder DecisionRecorder
}

// NewEngine creates an access engine over the given collaborators. logger and
// recorder may be nil.
func NewEngine(registry TeamRegistry, grants GrantStore, logger *observability.Logger, recorder DecisionRecorder) *Engine {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Engine{
		registry: registry,
		grants:   grants,
		logger:   logger,
		recorder: recorder,
	}
}

// ResolveModuleAccess decides whether the principal may use the module on the
// team. Precedence, first match wins:
//
//  1. platform admin → allow
//  2. team owner → allow
//  3. module not in the team's enabled set → deny
//  4. module in the union of the principal's group grants → allow, else deny
//
// The ordering is load-bearing: admins and owners bypass the enablement check
// (an owner can still reach a module the team data shows as disabled, e.g. to
// re-enable it), ordinary members cannot.
//
// A missing team yields a deny Decision, not an error; a failed store read
// yields a *StoreError and no Decision.
func (e *Engine) ResolveModuleAccess(ctx context.Context, principal *Principal, teamID int64, module Module) (Decision, error) {
	if principal == nil || principal.UserID == 0 {
		return Decision{}, fmt.Errorf("principal with user ID is required")
	}

	// Platform admin needs no team or group data at all.
	if principal.IsPlatformAdmin() {
		return e.finish(module, Decision{Allowed: true, IsPlatformAdmin: true, Reason: ReasonPlatformAdmin}), nil
	}

	team, grants, err := e.fetchTeamAndGrants(ctx, principal.UserID, teamID)
	if errors.Is(err, ErrTeamNotFound) {
		e.logger.WithFields(map[string]interface{}{
			"team_id": teamID,
			"module":  module,
		}).Warn("module access check against missing team")
		return e.finish(module, Decision{Reason: ReasonTeamNotFound}), nil
	}
	if err != nil {
		return Decision{}, err
	}

	if principal.UserID == team.OwnerUserID {
		return e.finish(module, Decision{Allowed: true, IsOwner: true, Reason: ReasonOwner}), nil
	}
	if !team.ModuleEnabled(module) {
		// The feature is switched off for this tenant; a matching group
		// grant is inert.
		return e.finish(module, Decision{Reason: ReasonModuleDisabled}), nil
	}
	if grants.HasModule(module) {
		return e.finish(module, Decision{Allowed: true, Reason: ReasonGrant}), nil
	}
	return e.finish(module, Decision{Reason: ReasonNoGrant}), nil
}

// AssertModuleAccess is the throwing view of ResolveModuleAccess: a deny
// Decision comes back as a *DeniedError carrying the query coordinates for
// the caller to translate into a redirect or 403. Infrastructure errors
// propagate unchanged.
func (e *Engine) AssertModuleAccess(ctx context.Context, principal *Principal, teamID int64, module Module) error {
	decision, err := e.ResolveModuleAccess(ctx, principal, teamID, module)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &DeniedError{UserID: principal.UserID, TeamID: teamID, Module: module}
	}
	return nil
}

// ResolveTeamAdminAccess is the ADMIN-module variant used by team-settings
// surfaces. It returns owner and delegated-admin status separately because
// those render different affordances. Group grants are read even for platform
// admins so the result reflects what is actually recorded.
func (e *Engine) ResolveTeamAdminAccess(ctx context.Context, userID, teamID int64, globalRoles []Role) (AdminDecision, error) {
	principal := &Principal{UserID: userID, GlobalRoles: globalRoles}

	team, grants, err := e.fetchTeamAndGrants(ctx, userID, teamID)
	if errors.Is(err, ErrTeamNotFound) {
		decision := AdminDecision{IsPlatformAdmin: principal.IsPlatformAdmin()}
		decision.Allowed = decision.IsPlatformAdmin
		return decision, nil
	}
	if err != nil {
		return AdminDecision{}, err
	}

	decision := AdminDecision{
		IsOwner:         userID == team.OwnerUserID,
		IsAdmin:         grants.HasModule(ModuleAdmin),
		IsPlatformAdmin: principal.IsPlatformAdmin(),
	}
	decision.Allowed = decision.IsOwner || decision.IsAdmin || decision.IsPlatformAdmin
	return decision, nil
}

// ResolveFieldMask computes the visible field names of a CRM-gated record for
// the principal on the team. Owners and platform admins see every field.
// Other callers see the base fields plus the fields of each submodule in
// their effective grant set. A nil result means CRM access itself is denied:
// the caller must treat that as "no record visible", not "record visible with
// zero fields".
func (e *Engine) ResolveFieldMask(ctx context.Context, principal *Principal, teamID int64, kind RecordKind) ([]string, error) {
	if principal == nil || principal.UserID == 0 {
		return nil, fmt.Errorf("principal with user ID is required")
	}
	if kind != RecordKindContact {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecordKind, kind)
	}

	if principal.IsPlatformAdmin() {
		return fullContactFields(), nil
	}

	team, grants, err := e.fetchTeamAndGrants(ctx, principal.UserID, teamID)
	if errors.Is(err, ErrTeamNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if principal.UserID == team.OwnerUserID {
		return fullContactFields(), nil
	}
	// Submodule grants are meaningful only under CRM-module allowance.
	if !team.ModuleEnabled(ModuleCRM) || !grants.HasModule(ModuleCRM) {
		return nil, nil
	}
	return visibleContactFields(grants[ModuleCRM]), nil
}

// finish records decision telemetry and passes the decision through
func (e *Engine) finish(module Module, decision Decision) Decision {
	if e.recorder != nil {
		outcome := "deny"
		if decision.Allowed {
			outcome = "allow"
		}
		e.recorder.RecordAccessDecision(string(module), outcome, decision.Reason)
	}
	return decision
}
