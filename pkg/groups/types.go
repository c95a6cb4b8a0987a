package groups

import (
	"context"
	"time"

	"github.com/troopbase/troopbase/pkg/access"
)

// Group represents a named set of users within a team
type Group struct {
	ID          int64     `json:"id"`
	TeamID      int64     `json:"team_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupMember represents a user's membership in a group
type GroupMember struct {
	GroupID int64     `json:"group_id"`
	UserID  int64     `json:"user_id"`
	AddedBy int64     `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// CreateGroupRequest is the payload for creating a group
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SetGrantRequest assigns or replaces a group's grant for one module
type SetGrantRequest struct {
	Module     access.Module      `json:"module"`
	Submodules []access.Submodule `json:"submodules,omitempty"`
}

// Store defines group persistence operations. GetUserGrants is the single
// read the access engine consumes; everything else serves the admin surface.
type Store interface {
	GetUserGrants(ctx context.Context, userID, teamID int64) ([]access.GroupGrant, error)

	CreateGroup(ctx context.Context, teamID int64, req *CreateGroupRequest) (*Group, error)
	GetGroup(ctx context.Context, groupID int64) (*Group, error)
	ListGroups(ctx context.Context, teamID int64) ([]*Group, error)
	DeleteGroup(ctx context.Context, teamID, groupID int64) error

	AddMember(ctx context.Context, groupID, userID, addedBy int64) error
	RemoveMember(ctx context.Context, groupID, userID int64) error
	ListMembers(ctx context.Context, groupID int64) ([]*GroupMember, error)

	SetGrant(ctx context.Context, groupID int64, req *SetGrantRequest) (*access.GroupGrant, error)
	RemoveGrant(ctx context.Context, groupID int64, module access.Module) error
	ListGrants(ctx context.Context, groupID int64) ([]access.GroupGrant, error)
}
