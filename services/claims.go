package services

import (
	"context"
	"fmt"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/google/uuid"
)

// DefaultClaimTTL is how long a new claim lives before the sweep releases it.
const DefaultClaimTTL = 30 * 24 * time.Hour

type ClaimService struct {
	items         ItemRepository
	claims        ClaimRepository
	notifications *NotificationService
	ttl           time.Duration
	now           func() time.Time
}

// NewClaimService builds the claim lifecycle controller. A ttl of zero
// creates claims that never expire.
func NewClaimService(items ItemRepository, claims ClaimRepository, notifications *NotificationService, ttl time.Duration) *ClaimService {
	return &ClaimService{
		items:         items,
		claims:        claims,
		notifications: notifications,
		ttl:           ttl,
		now:           time.Now,
	}
}

// SetClock replaces time.Now.
func (s *ClaimService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateClaim claims an item fully (amount == nil) or partially.
func (s *ClaimService) CreateClaim(ctx context.Context, itemID, userID string, amount *int64) (*models.Claim, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading item: %w", err)
	}
	// Owners cannot claim their own items and must not learn they exist as claimable.
	if item == nil || item.OwnerID == userID {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}

	recipient, err := s.items.IsItemRecipient(ctx, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking item access: %w", err)
	}
	if !recipient {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}

	if item.Status != models.ItemStatusActive {
		return nil, fmt.Errorf("%w: item is %s", ErrInvalidState, item.Status)
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, validationError("amount", "must be greater than 0")
		}
		if !item.HasPrice() {
			return nil, validationError("amount", "item has no price, only full claims are allowed")
		}
	}

	now := s.now()
	claim := &models.Claim{
		ID:        uuid.New().String(),
		ItemID:    itemID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: now,
	}
	if s.ttl > 0 {
		expires := now.Add(s.ttl)
		claim.ExpiresAt = &expires
	}

	err = s.claims.CreateClaim(ctx, claim, func(locked *models.Item, existing []models.Claim) error {
		return checkClaimAllowed(locked, existing, amount)
	})
	if err != nil {
		return nil, err
	}

	utils.LogClaimAction("CREATE", claim.ID, itemID, userID)
	return claim, nil
}

// checkClaimAllowed runs against the locked item and its current claims.
func checkClaimAllowed(item *models.Item, existing []models.Claim, amount *int64) error {
	if item.Status != models.ItemStatusActive {
		return fmt.Errorf("%w: item is %s", ErrInvalidState, item.Status)
	}

	for i := range existing {
		if existing[i].IsFull() {
			return fmt.Errorf("%w: item is already fully claimed", ErrConflict)
		}
	}

	if amount == nil {
		if len(existing) > 0 {
			return fmt.Errorf("%w: item already has partial claims", ErrConflict)
		}
		return nil
	}

	if !item.HasPrice() {
		return validationError("amount", "item has no price, only full claims are allowed")
	}
	claimable := ClaimableAmount(item.Price, existing)
	if *amount > *claimable {
		return fmt.Errorf("%w: amount %d exceeds claimable amount %d", ErrConflict, *amount, *claimable)
	}
	return nil
}

// ReleaseClaim removes every claim the caller holds on the claim's item.
func (s *ClaimService) ReleaseClaim(ctx context.Context, claimID, userID string) error {
	claim, err := s.ownClaim(ctx, claimID, userID)
	if err != nil {
		return err
	}

	item, err := s.items.GetItem(ctx, claim.ItemID)
	if err != nil {
		return fmt.Errorf("loading item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("%w: claim %s", ErrNotFound, claimID)
	}

	deleted, err := s.claims.DeleteUserClaimsOnItem(ctx, claim.ItemID, userID)
	if err != nil {
		return fmt.Errorf("releasing claims: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: claim %s", ErrNotFound, claimID)
	}

	utils.LogClaimAction("RELEASE", claimID, item.ID, userID)

	released := *item
	s.notifications.Dispatch("claim_released", func(ctx context.Context) error {
		_, err := s.notifyRecipients(ctx, &released, availableAgainNotification(&released, "released"), userID)
		return err
	})
	return nil
}

// MarkPurchased flags the caller's claim as bought.
func (s *ClaimService) MarkPurchased(ctx context.Context, claimID, userID string) (*models.Claim, error) {
	claim, err := s.ownClaim(ctx, claimID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ok, err := s.claims.MarkClaimPurchased(ctx, claimID, now)
	if err != nil {
		return nil, fmt.Errorf("marking claim purchased: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: claim already marked purchased", ErrInvalidState)
	}
	claim.PurchasedAt = &now

	utils.LogClaimAction("PURCHASE", claimID, claim.ItemID, userID)

	item, err := s.items.GetItem(ctx, claim.ItemID)
	if err != nil {
		utils.SafeError("Loading item %s for purchase notification: %v", utils.MaskID(claim.ItemID), err)
		return claim, nil
	}
	if item != nil {
		purchased := *item
		s.notifications.Dispatch("item_purchased", func(ctx context.Context) error {
			_, err := s.notifyRecipients(ctx, &purchased, NotificationInput{
				Type:  models.NotificationItemPurchased,
				Title: "Item purchased",
				Body:  fmt.Sprintf("Someone bought \"%s\".", purchased.Name),
				Data:  map[string]any{"item_id": purchased.ID, "item_name": purchased.Name},
			}, userID)
			return err
		})
	}
	return claim, nil
}

// UnmarkPurchased clears the purchased flag on the caller's claim.
func (s *ClaimService) UnmarkPurchased(ctx context.Context, claimID, userID string) (*models.Claim, error) {
	claim, err := s.ownClaim(ctx, claimID, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.claims.UnmarkClaimPurchased(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("unmarking claim purchased: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: claim is not marked purchased", ErrInvalidState)
	}
	claim.PurchasedAt = nil

	utils.LogClaimAction("UNPURCHASE", claimID, claim.ItemID, userID)
	return claim, nil
}

// DeleteItemCascade tells every claimer their claim is gone, then deletes the
// item along with its claims and shares.
func (s *ClaimService) DeleteItemCascade(ctx context.Context, itemID, ownerID string) error {
	item, err := s.ownedItem(ctx, itemID, ownerID)
	if err != nil {
		return err
	}

	claims, err := s.claims.ListClaimsByItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("listing claims: %w", err)
	}

	claimers := notificationTargets(item.OwnerID, claimerIDs(claims))
	s.notifications.NotifyUsers(ctx, claimers, NotificationInput{
		Type:  models.NotificationItemDeleted,
		Title: "Item removed",
		Body:  fmt.Sprintf("\"%s\" was removed from the wishlist. Your claim has been released.", item.Name),
		Data:  map[string]any{"item_id": item.ID, "item_name": item.Name, "reason": "item_deleted"},
	})

	if err := s.items.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	utils.LogItemAction("DELETE", itemID, ownerID)
	return nil
}

// MarkReceived moves an item to received and tells its claimers.
func (s *ClaimService) MarkReceived(ctx context.Context, itemID, ownerID string) (*models.Item, error) {
	item, err := s.ownedItem(ctx, itemID, ownerID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ItemStatusActive {
		return nil, fmt.Errorf("%w: item is %s", ErrInvalidState, item.Status)
	}

	ok, err := s.items.UpdateItemStatus(ctx, itemID, models.ItemStatusActive, models.ItemStatusReceived)
	if err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: item is no longer active", ErrInvalidState)
	}
	item.Status = models.ItemStatusReceived
	item.UpdatedAt = s.now()

	utils.LogItemAction("RECEIVED", itemID, ownerID)

	received := *item
	s.notifications.Dispatch("item_received", func(ctx context.Context) error {
		claims, err := s.claims.ListClaimsByItem(ctx, received.ID)
		if err != nil {
			return fmt.Errorf("listing claims: %w", err)
		}
		s.notifications.NotifyUsers(ctx, notificationTargets(received.OwnerID, claimerIDs(claims)), NotificationInput{
			Type:  models.NotificationItemReceived,
			Title: "Gift received",
			Body:  fmt.Sprintf("\"%s\" was marked as received. Thank you!", received.Name),
			Data:  map[string]any{"item_id": received.ID, "item_name": received.Name},
		})
		return nil
	})
	return item, nil
}

// ListUserClaims returns the caller's own claims.
func (s *ClaimService) ListUserClaims(ctx context.Context, userID string) ([]models.Claim, error) {
	claims, err := s.claims.ListClaimsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	return claims, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *ClaimService) ownClaim(ctx context.Context, claimID, userID string) (*models.Claim, error) {
	claim, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	if claim == nil || claim.UserID != userID {
		return nil, fmt.Errorf("%w: claim %s", ErrNotFound, claimID)
	}
	return claim, nil
}

func (s *ClaimService) ownedItem(ctx context.Context, itemID, ownerID string) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading item: %w", err)
	}
	if item == nil || item.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	return item, nil
}

// notifyRecipients sends in to every recipient of item except its owner and
// the excluded users.
func (s *ClaimService) notifyRecipients(ctx context.Context, item *models.Item, in NotificationInput, exclude ...string) (int, error) {
	return notifyItemRecipients(ctx, s.items, s.notifications, item, in, exclude...)
}

func notifyItemRecipients(ctx context.Context, items ItemRepository, notifications *NotificationService, item *models.Item, in NotificationInput, exclude ...string) (int, error) {
	recipients, err := items.ListItemRecipients(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("listing recipients of item %s: %w", item.ID, err)
	}
	return notifications.NotifyUsers(ctx, notificationTargets(item.OwnerID, recipients, exclude...), in), nil
}

// notificationTargets dedupes candidates and removes the owner and excluded
// users. Every claim-related fan-out goes through here.
func notificationTargets(ownerID string, candidates []string, exclude ...string) []string {
	skip := map[string]bool{ownerID: true}
	for _, id := range exclude {
		skip[id] = true
	}

	var out []string
	for _, id := range candidates {
		if id == "" || skip[id] {
			continue
		}
		skip[id] = true
		out = append(out, id)
	}
	return out
}

func claimerIDs(claims []models.Claim) []string {
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.UserID)
	}
	return ids
}

func availableAgainNotification(item *models.Item, reason string) NotificationInput {
	return NotificationInput{
		Type:  models.NotificationClaimReleased,
		Title: "Item available again",
		Body:  fmt.Sprintf("\"%s\" is available to claim again.", item.Name),
		Data:  map[string]any{"item_id": item.ID, "item_name": item.Name, "reason": reason},
	}
}
