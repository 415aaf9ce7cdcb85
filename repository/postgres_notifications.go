package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
)

func (p *Postgres) CreateNotification(ctx context.Context, n *models.Notification) error {
	data := []byte(n.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, data, read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, n.ID, n.UserID, n.Type, n.Title, n.Body, string(data), n.Read, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return mapWriteError("inserting notification", err)
	}
	return nil
}

func (p *Postgres) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, body, data, read, created_at, updated_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY created_at DESC, id
		LIMIT $3
	`, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var list []models.Notification
	for rows.Next() {
		var (
			n    models.Notification
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &data, &n.Read, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		n.Data = data
		list = append(list, n)
	}
	return list, rows.Err()
}

func (p *Postgres) MarkNotificationRead(ctx context.Context, id, userID string) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, updated_at = $3
		WHERE id = $1 AND user_id = $2
	`, id, userID, time.Now()))
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	n, err := affected(p.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, updated_at = $2
		WHERE user_id = $1 AND read = FALSE
	`, userID, time.Now()))
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return n, nil
}

func (p *Postgres) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (p *Postgres) PurgeReadNotifications(ctx context.Context, before time.Time) (int64, error) {
	n, err := affected(p.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read = TRUE AND created_at < $1`, before))
	if err != nil {
		return 0, fmt.Errorf("purging notifications: %w", err)
	}
	return n, nil
}
