package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/services"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/lib/pq"
)

const itemColumns = `i.id, i.owner_id, i.name, i.url, i.price, i.notes, i.image_url, i.status, i.created_at, i.updated_at`

func scanItem(row scanner) (*models.Item, error) {
	var (
		item                 models.Item
		url, notes, imageURL sql.NullString
		price                sql.NullInt64
	)
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &url, &price, &notes, &imageURL,
		&item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.URL = nullString(url)
	item.Price = nullInt64(price)
	item.Notes = nullString(notes)
	item.ImageURL = nullString(imageURL)
	return &item, nil
}

func (p *Postgres) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (p *Postgres) CreateItem(ctx context.Context, item *models.Item) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO items (id, owner_id, name, url, price, notes, image_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.OwnerID, item.Name, item.URL, item.Price, item.Notes, item.ImageURL,
		item.Status, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return mapWriteError("inserting item", err)
	}
	return nil
}

func (p *Postgres) GetItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := scanItem(p.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i WHERE i.id = $1`, id))
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return item, nil
}

func (p *Postgres) ListItemsByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	items, err := p.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items i
		WHERE i.owner_id = $1
		ORDER BY i.created_at DESC, i.id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying items by owner: %w", err)
	}
	return items, nil
}

func (p *Postgres) ListItemsSharedWith(ctx context.Context, userID string) ([]models.Item, error) {
	items, err := p.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items i
		WHERE EXISTS (
			SELECT 1 FROM item_groups ig
			INNER JOIN group_members gm ON gm.group_id = ig.group_id
			WHERE ig.item_id = i.id AND gm.user_id = $1
		)
		ORDER BY i.created_at DESC, i.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying shared items: %w", err)
	}
	return items, nil
}

// UpdateItem locks the item row, so the guard sees the same claims that
// CreateClaim guards against, and deletes the claims it selects.
func (p *Postgres) UpdateItem(ctx context.Context, item *models.Item, guard services.ItemUpdateGuard) ([]models.Claim, error) {
	var released []models.Claim
	err := utils.WithTransaction(ctx, p.db, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM items WHERE id = $1 FOR UPDATE`, item.ID).Scan(&id)
		if isNoRow(err) {
			return fmt.Errorf("item %s: %w", item.ID, services.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("locking item: %w", err)
		}

		if guard != nil {
			existing, err := queryClaims(ctx, tx,
				`SELECT `+claimColumns+` FROM claims WHERE item_id = $1 ORDER BY created_at, id`, item.ID)
			if err != nil {
				return fmt.Errorf("querying item claims: %w", err)
			}
			released = guard(existing)
		}

		if len(released) > 0 {
			ids := make([]string, 0, len(released))
			for _, c := range released {
				ids = append(ids, c.ID)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM claims WHERE id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
				return fmt.Errorf("releasing claims: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE items
			SET name = $2, url = $3, price = $4, notes = $5, image_url = $6, updated_at = $7
			WHERE id = $1
		`, item.ID, item.Name, item.URL, item.Price, item.Notes, item.ImageURL, item.UpdatedAt); err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func (p *Postgres) UpdateItemStatus(ctx context.Context, id, from, to string) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx, `
		UPDATE items SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, from, to, time.Now()))
	if err != nil {
		return false, fmt.Errorf("updating item status: %w", err)
	}
	return n > 0, nil
}

// DeleteItem relies on ON DELETE CASCADE for claims and item_groups.
func (p *Postgres) DeleteItem(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

func (p *Postgres) ShareItem(ctx context.Context, itemID, groupID string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO item_groups (item_id, group_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, itemID, groupID)
	if err != nil {
		return fmt.Errorf("sharing item: %w", err)
	}
	return nil
}

func (p *Postgres) UnshareItem(ctx context.Context, itemID, groupID string) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx,
		`DELETE FROM item_groups WHERE item_id = $1 AND group_id = $2`, itemID, groupID))
	if err != nil {
		return false, fmt.Errorf("unsharing item: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) ListItemRecipients(ctx context.Context, itemID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT gm.user_id
		FROM item_groups ig
		INNER JOIN group_members gm ON gm.group_id = ig.group_id
		WHERE ig.item_id = $1
		ORDER BY gm.user_id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("querying item recipients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Postgres) IsItemRecipient(ctx context.Context, itemID, userID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM item_groups ig
			INNER JOIN group_members gm ON gm.group_id = ig.group_id
			WHERE ig.item_id = $1 AND gm.user_id = $2
		)
	`, itemID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking item recipient: %w", err)
	}
	return exists, nil
}
