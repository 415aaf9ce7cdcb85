package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/google/uuid"
)

// ============================================================================
// GROUPS
// ============================================================================

func (p *Postgres) CreateGroup(ctx context.Context, group *models.Group) error {
	return utils.WithTransaction(ctx, p.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO groups (id, name, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, group.ID, group.Name, group.OwnerID, group.CreatedAt, group.UpdatedAt); err != nil {
			return mapWriteError("inserting group", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_members (id, group_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New().String(), group.ID, group.OwnerID, models.GroupRoleOwner, group.CreatedAt); err != nil {
			return mapWriteError("inserting owner member", err)
		}
		return nil
	})
}

func (p *Postgres) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	var g models.Group
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at FROM groups WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt)
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying group: %w", err)
	}
	return &g, nil
}

func (p *Postgres) ListUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.owner_id, g.created_at, g.updated_at
		FROM groups g
		INNER JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (p *Postgres) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT gm.id, gm.group_id, gm.user_id, gm.role, gm.joined_at, u.name, u.email
		FROM group_members gm
		INNER JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.UserName, &m.UserEmail); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (p *Postgres) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)
	`, groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}

func (p *Postgres) AddMember(ctx context.Context, member *models.GroupMember) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO group_members (id, group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, member.ID, member.GroupID, member.UserID, member.Role, member.JoinedAt)
	if err != nil {
		return mapWriteError("inserting member", err)
	}
	return nil
}

func (p *Postgres) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID))
	if err != nil {
		return false, fmt.Errorf("removing member: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) DeleteGroup(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	return nil
}

// ============================================================================
// INVITATIONS
// ============================================================================

const invitationColumns = `id, group_id, email, COALESCE(invited_by::text, ''), token, status, expires_at, created_at`

func scanInvitation(row scanner) (*models.Invitation, error) {
	var inv models.Invitation
	if err := row.Scan(&inv.ID, &inv.GroupID, &inv.Email, &inv.InvitedBy, &inv.Token,
		&inv.Status, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (p *Postgres) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO invitations (id, group_id, email, invited_by, token, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.GroupID, inv.Email, inv.InvitedBy, inv.Token, inv.Status, inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return mapWriteError("inserting invitation", err)
	}
	return nil
}

func (p *Postgres) getInvitation(ctx context.Context, query string, args ...any) (*models.Invitation, error) {
	inv, err := scanInvitation(p.db.QueryRowContext(ctx, query, args...))
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying invitation: %w", err)
	}
	return inv, nil
}

func (p *Postgres) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return p.getInvitation(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE token = $1`, token)
}

func (p *Postgres) GetPendingInvitation(ctx context.Context, groupID, email string) (*models.Invitation, error) {
	return p.getInvitation(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE group_id = $1 AND LOWER(email) = LOWER($2) AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`, groupID, email)
}

func (p *Postgres) ListInvitations(ctx context.Context, groupID string) ([]models.Invitation, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE group_id = $1
		ORDER BY created_at DESC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

func (p *Postgres) UpdateInvitationStatus(ctx context.Context, id, status string) error {
	if _, err := p.db.ExecContext(ctx, `UPDATE invitations SET status = $2 WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("updating invitation: %w", err)
	}
	return nil
}

func (p *Postgres) DeletePendingInvitation(ctx context.Context, groupID, id string) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx, `
		DELETE FROM invitations WHERE id = $1 AND group_id = $2 AND status = 'pending'
	`, id, groupID))
	if err != nil {
		return false, fmt.Errorf("deleting invitation: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error) {
	n, err := affected(p.db.ExecContext(ctx, `
		UPDATE invitations SET status = 'expired'
		WHERE status = 'pending' AND expires_at < $1
	`, now))
	if err != nil {
		return 0, fmt.Errorf("expiring invitations: %w", err)
	}
	return n, nil
}
