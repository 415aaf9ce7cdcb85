package models

import "time"

// Claim is a user's declared intent to gift all (Amount == nil) or part of
// an item. Amount is in cents.
type Claim struct {
	ID          string     `json:"id"`
	ItemID      string     `json:"item_id"`
	UserID      string     `json:"user_id"`
	Amount      *int64     `json:"amount"`
	ExpiresAt   *time.Time `json:"expires_at"`
	PurchasedAt *time.Time `json:"purchased_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsFull reports whether the claim covers the whole item.
func (c *Claim) IsFull() bool {
	return c.Amount == nil
}

type ClaimState string

const (
	ClaimStateUnclaimed           ClaimState = "unclaimed"
	ClaimStatePartiallyClaimed    ClaimState = "partially_claimed"
	ClaimStateFullyClaimedByMe    ClaimState = "fully_claimed_by_me"
	ClaimStateFullyClaimedByOther ClaimState = "fully_claimed_by_other"
	ClaimStateExpiringSoon        ClaimState = "expiring_soon"
)

// ClaimSummary is the derived claim view of one item for one recipient.
type ClaimSummary struct {
	State           ClaimState `json:"state"`
	ClaimableAmount *int64     `json:"claimable_amount"`
	MyClaims        []Claim    `json:"my_claims"`
	OtherClaimCount int        `json:"other_claim_count"`
}

type CreateClaimRequest struct {
	ItemID string `json:"item_id" binding:"required"`
	Amount *int64 `json:"amount" binding:"omitempty,gt=0"`
}
