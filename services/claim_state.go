package services

import (
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
)

// ExpiringSoonThreshold is how close to expiry a claim counts as expiring soon.
const ExpiringSoonThreshold = 3 * 24 * time.Hour

// IsExpiringSoon reports whether expiresAt is less than ExpiringSoonThreshold
// away from now. A nil expiry never expires.
func IsExpiringSoon(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return expiresAt.Sub(now) < ExpiringSoonThreshold
}

// ClaimableAmount is the part of price not yet covered by claims: nil for an
// unpriced item, 0 once a full claim exists.
func ClaimableAmount(price *int64, claims []models.Claim) *int64 {
	if price == nil {
		return nil
	}

	var claimed int64
	for i := range claims {
		if claims[i].IsFull() {
			return int64Ptr(0)
		}
		claimed += *claims[i].Amount
	}

	remaining := *price - claimed
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// UncoveredPartialClaims returns the partial claims price no longer covers,
// newest first. claims must be ordered oldest first. An unpriced item covers no partial claim. Full claims are
// never returned.
func UncoveredPartialClaims(price *int64, claims []models.Claim) []models.Claim {
	var (
		partial []models.Claim
		sum     int64
	)
	for _, c := range claims {
		if !c.IsFull() {
			partial = append(partial, c)
			sum += *c.Amount
		}
	}

	var limit int64
	if price != nil && *price > 0 {
		limit = *price
	}

	var out []models.Claim
	for i := len(partial) - 1; i >= 0 && sum > limit; i-- {
		out = append(out, partial[i])
		sum -= *partial[i].Amount
	}
	return out
}

// DeriveClaimState computes the claim state of an item as seen by userID.
// First match wins.
func DeriveClaimState(claims []models.Claim, claimable *int64, userID string, price *int64, now time.Time) models.ClaimState {
	var mine []models.Claim
	for _, c := range claims {
		if c.UserID == userID {
			mine = append(mine, c)
		}
	}

	for _, c := range mine {
		if c.IsFull() {
			if IsExpiringSoon(c.ExpiresAt, now) {
				return models.ClaimStateExpiringSoon
			}
			return models.ClaimStateFullyClaimedByMe
		}
	}

	for _, c := range claims {
		if c.IsFull() && c.UserID != userID {
			return models.ClaimStateFullyClaimedByOther
		}
	}

	if price != nil && *price > 0 && claimable != nil && *claimable == 0 {
		if len(mine) == 0 {
			return models.ClaimStateFullyClaimedByOther
		}
		for _, c := range mine {
			if IsExpiringSoon(c.ExpiresAt, now) {
				return models.ClaimStateExpiringSoon
			}
		}
		return models.ClaimStateFullyClaimedByMe
	}

	if len(claims) > 0 && claimable != nil && *claimable > 0 {
		return models.ClaimStatePartiallyClaimed
	}

	return models.ClaimStateUnclaimed
}

// SummarizeClaims builds the recipient-facing claim view of an item.
func SummarizeClaims(item *models.Item, claims []models.Claim, viewerID string, now time.Time) *models.ClaimSummary {
	claimable := ClaimableAmount(item.Price, claims)

	summary := &models.ClaimSummary{
		State:           DeriveClaimState(claims, claimable, viewerID, item.Price, now),
		ClaimableAmount: claimable,
		MyClaims:        []models.Claim{},
	}
	for _, c := range claims {
		if c.UserID == viewerID {
			summary.MyClaims = append(summary.MyClaims, c)
		} else {
			summary.OtherClaimCount++
		}
	}
	return summary
}

func int64Ptr(v int64) *int64 {
	return &v
}
