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

const claimColumns = `id, item_id, user_id, amount, expires_at, purchased_at, created_at`

func scanClaim(row scanner) (*models.Claim, error) {
	var (
		c                      models.Claim
		amount                 sql.NullInt64
		expiresAt, purchasedAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.ItemID, &c.UserID, &amount, &expiresAt, &purchasedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Amount = nullInt64(amount)
	c.ExpiresAt = nullTime(expiresAt)
	c.PurchasedAt = nullTime(purchasedAt)
	return &c, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryClaims(ctx context.Context, q queryer, query string, args ...any) ([]models.Claim, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []models.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// CreateClaim locks the item row so concurrent claims on the same item run
// their guard one after another.
func (p *Postgres) CreateClaim(ctx context.Context, claim *models.Claim, guard services.ClaimGuard) error {
	return utils.WithTransaction(ctx, p.db, func(tx *sql.Tx) error {
		item, err := scanItem(tx.QueryRowContext(ctx,
			`SELECT `+itemColumns+` FROM items i WHERE i.id = $1 FOR UPDATE`, claim.ItemID))
		if isNoRow(err) {
			return fmt.Errorf("item %s: %w", claim.ItemID, services.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("locking item: %w", err)
		}

		existing, err := queryClaims(ctx, tx,
			`SELECT `+claimColumns+` FROM claims WHERE item_id = $1 ORDER BY created_at, id`, claim.ItemID)
		if err != nil {
			return fmt.Errorf("querying item claims: %w", err)
		}

		if guard != nil {
			if err := guard(item, existing); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO claims (id, item_id, user_id, amount, expires_at, purchased_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, claim.ID, claim.ItemID, claim.UserID, claim.Amount, claim.ExpiresAt, claim.PurchasedAt, claim.CreatedAt)
		if err != nil {
			return mapWriteError("inserting claim", err)
		}
		return nil
	})
}

func (p *Postgres) GetClaim(ctx context.Context, id string) (*models.Claim, error) {
	c, err := scanClaim(p.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id))
	if isNoRow(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying claim: %w", err)
	}
	return c, nil
}

func (p *Postgres) ListClaimsByItem(ctx context.Context, itemID string) ([]models.Claim, error) {
	claims, err := queryClaims(ctx, p.db,
		`SELECT `+claimColumns+` FROM claims WHERE item_id = $1 ORDER BY created_at, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("querying claims by item: %w", err)
	}
	return claims, nil
}

func (p *Postgres) ListClaimsByItems(ctx context.Context, itemIDs []string) (map[string][]models.Claim, error) {
	out := make(map[string][]models.Claim)
	if len(itemIDs) == 0 {
		return out, nil
	}

	claims, err := queryClaims(ctx, p.db,
		`SELECT `+claimColumns+` FROM claims WHERE item_id = ANY($1::uuid[]) ORDER BY created_at, id`,
		pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("querying claims by items: %w", err)
	}
	for _, c := range claims {
		out[c.ItemID] = append(out[c.ItemID], c)
	}
	return out, nil
}

func (p *Postgres) ListClaimsByUser(ctx context.Context, userID string) ([]models.Claim, error) {
	claims, err := queryClaims(ctx, p.db,
		`SELECT `+claimColumns+` FROM claims WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying claims by user: %w", err)
	}
	return claims, nil
}

func (p *Postgres) DeleteUserClaimsOnItem(ctx context.Context, itemID, userID string) (int64, error) {
	n, err := affected(p.db.ExecContext(ctx,
		`DELETE FROM claims WHERE item_id = $1 AND user_id = $2`, itemID, userID))
	if err != nil {
		return 0, fmt.Errorf("deleting user claims: %w", err)
	}
	return n, nil
}

func (p *Postgres) DeleteClaim(ctx context.Context, id string) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx, `DELETE FROM claims WHERE id = $1`, id))
	if err != nil {
		return false, fmt.Errorf("deleting claim: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) MarkClaimPurchased(ctx context.Context, id string, at time.Time) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx,
		`UPDATE claims SET purchased_at = $2 WHERE id = $1 AND purchased_at IS NULL`, id, at))
	if err != nil {
		return false, fmt.Errorf("marking claim purchased: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) UnmarkClaimPurchased(ctx context.Context, id string) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx,
		`UPDATE claims SET purchased_at = NULL WHERE id = $1 AND purchased_at IS NOT NULL`, id))
	if err != nil {
		return false, fmt.Errorf("unmarking claim purchased: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) ListClaimsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Claim, error) {
	claims, err := queryClaims(ctx, p.db, `
		SELECT `+claimColumns+` FROM claims
		WHERE expires_at IS NOT NULL AND expires_at > $1 AND expires_at < $2
		ORDER BY expires_at, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying expiring claims: %w", err)
	}
	return claims, nil
}

func (p *Postgres) ListClaimsExpiredBefore(ctx context.Context, t time.Time) ([]models.Claim, error) {
	claims, err := queryClaims(ctx, p.db, `
		SELECT `+claimColumns+` FROM claims
		WHERE expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at, id
	`, t)
	if err != nil {
		return nil, fmt.Errorf("querying expired claims: %w", err)
	}
	return claims, nil
}

func (p *Postgres) SetClaimExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	n, err := affected(p.db.ExecContext(ctx,
		`UPDATE claims SET expires_at = $2 WHERE id = $1 AND expires_at IS NULL`, id, expiresAt))
	if err != nil {
		return false, fmt.Errorf("setting claim expiry: %w", err)
	}
	return n > 0, nil
}

func (p *Postgres) ListClaimsWithoutExpiry(ctx context.Context) ([]models.Claim, error) {
	claims, err := queryClaims(ctx, p.db,
		`SELECT `+claimColumns+` FROM claims WHERE expires_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying claims without expiry: %w", err)
	}
	return claims, nil
}
