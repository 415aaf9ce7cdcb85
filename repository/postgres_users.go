package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
)

const userColumns = `id, email, name, avatar, password_hash, totp_secret, totp_enabled, created_at, updated_at`

func (p *Postgres) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.Avatar, &u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, avatar, password_hash, totp_secret, totp_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Email, user.Name, user.Avatar, user.PasswordHash, user.TOTPSecret, user.TOTPEnabled,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return mapWriteError("inserting user", err)
	}
	return nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx, "id = $1", id)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.getUser(ctx, "LOWER(email) = LOWER($1)", email)
}

func (p *Postgres) UpdateProfile(ctx context.Context, id, name, avatar string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE users SET name = $2, avatar = $3, updated_at = $4 WHERE id = $1`, id, name, avatar, time.Now())
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

func (p *Postgres) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, time.Now())
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

func (p *Postgres) SetTOTP(ctx context.Context, id, secret string, enabled bool) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $2, totp_enabled = $3, updated_at = $4 WHERE id = $1`,
		id, secret, enabled, time.Now())
	if err != nil {
		return fmt.Errorf("updating 2FA: %w", err)
	}
	return nil
}
