// migration/backfill_claim_expiry.go
// Gives claims created before expiry existed an expires_at of
// created_at + claim TTL, so the daily sweep can release them.
//
// USAGE: POST /api/v1/admin/claims/backfill-expiry with X-Admin-Secret.

package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"
)

// ClaimExpiryStore is the part of the claim store the backfill needs.
type ClaimExpiryStore interface {
	ListClaimsWithoutExpiry(ctx context.Context) ([]models.Claim, error)
	SetClaimExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error)
}

type ExpiryUpdate struct {
	ClaimID   string
	ExpiresAt time.Time
}

type BackfillResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// PlanExpiryBackfill computes the expiry of every claim lacking one.
func PlanExpiryBackfill(claims []models.Claim, ttl time.Duration) []ExpiryUpdate {
	var plan []ExpiryUpdate
	for _, c := range claims {
		if c.ExpiresAt != nil {
			continue
		}
		plan = append(plan, ExpiryUpdate{ClaimID: c.ID, ExpiresAt: c.CreatedAt.Add(ttl)})
	}
	return plan
}

// BackfillClaimExpiry applies PlanExpiryBackfill. Claims that gained an
// expiry in the meantime are skipped.
func BackfillClaimExpiry(ctx context.Context, store ClaimExpiryStore, ttl time.Duration) (BackfillResult, error) {
	var result BackfillResult
	if ttl <= 0 {
		return result, fmt.Errorf("claim expiry is disabled (CLAIM_TTL_DAYS=0)")
	}

	claims, err := store.ListClaimsWithoutExpiry(ctx)
	if err != nil {
		return result, fmt.Errorf("listing claims without expiry: %w", err)
	}
	result.Scanned = len(claims)

	for _, u := range PlanExpiryBackfill(claims, ttl) {
		ok, err := store.SetClaimExpiry(ctx, u.ClaimID, u.ExpiresAt)
		switch {
		case err != nil:
			utils.SafeError("❌ Backfill claim %s: %v", utils.MaskID(u.ClaimID), err)
			result.Errors++
		case ok:
			result.Updated++
		default:
			result.Skipped++
		}
	}

	utils.SafeInfo("📊 Claim expiry backfill: %d scanned, %d updated, %d skipped, %d errors",
		result.Scanned, result.Updated, result.Skipped, result.Errors)
	return result, nil
}
