package teams

import (
	"context"
	"time"

	"github.com/troopbase/troopbase/pkg/access"
)

// TeamStatus represents team lifecycle status
type TeamStatus string

const (
	TeamStatusActive    TeamStatus = "active"
	TeamStatusSuspended TeamStatus = "suspended"
	TeamStatusDeleted   TeamStatus = "deleted"
)

// Team represents a tenant team
type Team struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	OwnerUserID    int64           `json:"owner_user_id"`
	Status         TeamStatus      `json:"status"`
	EnabledModules []access.Module `json:"enabled_modules"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DefaultEnabledModules returns the module set applied to teams that never
// recorded one. New teams start with funding only; admin access is governed
// by ownership and CRM is an explicit opt-in.
func DefaultEnabledModules() []access.Module {
	return []access.Module{access.ModuleFunding}
}

// InvitationStatus represents the lifecycle of a team invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	InvitationRevoked  InvitationStatus = "revoked"
)

// InvitationTTL is how long an invitation stays acceptable
const InvitationTTL = 7 * 24 * time.Hour

// Invitation represents a pending invitation to join a team
type Invitation struct {
	ID         int64            `json:"id"`
	TeamID     int64            `json:"team_id"`
	Email      string           `json:"email"`
	Token      string           `json:"token,omitempty"`
	InvitedBy  int64            `json:"invited_by"`
	Status     InvitationStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
}

// CreateTeamRequest is the payload for creating a team
type CreateTeamRequest struct {
	Name           string          `json:"name"`
	Slug           string          `json:"slug,omitempty"`
	OwnerUserID    int64           `json:"owner_user_id"`
	EnabledModules []access.Module `json:"enabled_modules,omitempty"`
}

// UpdateTeamRequest is the payload for updating a team. Nil fields are left
// unchanged.
type UpdateTeamRequest struct {
	Name           *string          `json:"name,omitempty"`
	EnabledModules *[]access.Module `json:"enabled_modules,omitempty"`
}

// Registry defines team persistence operations
type Registry interface {
	CreateTeam(ctx context.Context, req *CreateTeamRequest) (*Team, error)
	GetTeam(ctx context.Context, id int64) (*Team, error)
	GetTeamBySlug(ctx context.Context, slug string) (*Team, error)
	ListTeamsForUser(ctx context.Context, userID int64) ([]*Team, error)
	UpdateTeam(ctx context.Context, id int64, updates *UpdateTeamRequest) (*Team, error)
	DeleteTeam(ctx context.Context, id int64) error

	CreateInvitation(ctx context.Context, teamID int64, email string, invitedBy int64) (*Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (*Invitation, error)
	AcceptInvitation(ctx context.Context, token string, userID int64) (*Invitation, error)
	RevokeInvitation(ctx context.Context, teamID, invitationID int64) error
	ListInvitations(ctx context.Context, teamID int64) ([]*Invitation, error)
	ExpireInvitations(ctx context.Context, now time.Time) (int64, error)
}
