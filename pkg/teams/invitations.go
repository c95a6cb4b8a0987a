package teams

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/troopbase/troopbase/pkg/observability"
)

// ErrInvitationNotFound indicates the token does not match a pending
// invitation
var ErrInvitationNotFound = fmt.Errorf("invitation not found")

// CreateInvitation creates a pending invitation with a fresh random token
func (r *PostgresRegistry) CreateInvitation(ctx context.Context, teamID int64, email string, invitedBy int64) (*Invitation, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if _, err := r.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}

	inv := &Invitation{
		TeamID:    teamID,
		Email:     email,
		Token:     uuid.New().String(),
		InvitedBy: invitedBy,
		Status:    InvitationPending,
		ExpiresAt: time.Now().UTC().Add(InvitationTTL),
	}

	query := `
		INSERT INTO team_invitations (team_id, email, token, invited_by, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		inv.TeamID, inv.Email, inv.Token, inv.InvitedBy, inv.Status, inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return inv, nil
}

const invitationColumns = `id, team_id, email, token, invited_by, status, created_at, expires_at, accepted_at`

// GetInvitationByToken retrieves an invitation by its token
func (r *PostgresRegistry) GetInvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE token = $1`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, ErrInvitationNotFound
	}
	return inv, err
}

// AcceptInvitation marks a pending, unexpired invitation accepted. The caller
// adds the user to a group afterwards; acceptance itself grants nothing.
func (r *PostgresRegistry) AcceptInvitation(ctx context.Context, token string, userID int64) (*Invitation, error) {
	inv, err := r.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status != InvitationPending {
		return nil, fmt.Errorf("invitation is %s", inv.Status)
	}
	if time.Now().UTC().After(inv.ExpiresAt) {
		return nil, fmt.Errorf("invitation has expired")
	}

	now := time.Now().UTC()
	query := `UPDATE team_invitations SET status = $1, accepted_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, InvitationAccepted, now, inv.ID, InvitationPending)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Lost a race with another accept or a revoke.
		return nil, ErrInvitationNotFound
	}

	inv.Status = InvitationAccepted
	inv.AcceptedAt = &now
	return inv, nil
}

// RevokeInvitation marks a pending invitation revoked
func (r *PostgresRegistry) RevokeInvitation(ctx context.Context, teamID, invitationID int64) error {
	query := `UPDATE team_invitations SET status = $1 WHERE id = $2 AND team_id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, InvitationRevoked, invitationID, teamID, InvitationPending)
	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// ListInvitations lists a team's invitations, newest first. Tokens are
// cleared: they are secrets shown once at creation.
func (r *PostgresRegistry) ListInvitations(ctx context.Context, teamID int64) ([]*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE team_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		inv.Token = ""
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// ExpireInvitations marks pending invitations past their deadline as expired
// and returns how many rows changed
func (r *PostgresRegistry) ExpireInvitations(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE team_invitations SET status = $1 WHERE status = $2 AND expires_at < $3`
	result, err := r.db.ExecContext(ctx, query, InvitationExpired, InvitationPending, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	return result.RowsAffected()
}

func scanInvitation(s scanner) (*Invitation, error) {
	inv := &Invitation{}
	var acceptedAt sql.NullTime
	err := s.Scan(
		&inv.ID, &inv.TeamID, &inv.Email, &inv.Token, &inv.InvitedBy,
		&inv.Status, &inv.CreatedAt, &inv.ExpiresAt, &acceptedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}
	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	return inv, nil
}

// StartInvitationSweeper schedules the periodic expiry sweep. The returned
// cron is already started; callers stop it during shutdown.
func StartInvitationSweeper(registry Registry, logger *observability.Logger, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = "@hourly"
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		expired, err := registry.ExpireInvitations(ctx, time.Now())
		if err != nil {
			logger.WithError(err).Error("invitation expiry sweep failed")
			return
		}
		if expired > 0 {
			logger.WithField("expired", expired).Info("expired stale invitations")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule invitation sweep: %w", err)
	}

	c.Start()
	return c, nil
}
