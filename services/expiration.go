package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"
)

// SweepResult summarizes one sweep run.
type SweepResult struct {
	RemindersSent  int `json:"reminders_sent"`
	ClaimsReleased int `json:"claims_released"`
}

// ExpirationSweep reminds claimers of upcoming expiry and releases expired
// claims. Overlapping runs are not deduplicated; callers schedule one at a time.
type ExpirationSweep struct {
	items         ItemRepository
	claims        ClaimRepository
	notifications *NotificationService
	now           func() time.Time
}

func NewExpirationSweep(items ItemRepository, claims ClaimRepository, notifications *NotificationService) *ExpirationSweep {
	return &ExpirationSweep{
		items:         items,
		claims:        claims,
		notifications: notifications,
		now:           time.Now,
	}
}

// SetClock replaces time.Now.
func (s *ExpirationSweep) SetClock(now func() time.Time) {
	s.now = now
}

// Run executes the reminder pass and then the release pass.
func (s *ExpirationSweep) Run(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	reminders, err := s.SendReminders(ctx)
	if err != nil {
		return result, err
	}
	result.RemindersSent = reminders

	released, err := s.ReleaseExpired(ctx)
	if err != nil {
		return result, err
	}
	result.ClaimsReleased = released

	utils.SafeInfo("🧹 Claim sweep done: %d reminders, %d released", result.RemindersSent, result.ClaimsReleased)
	return result, nil
}

// SendReminders notifies claimers whose claims expire within the threshold.
func (s *ExpirationSweep) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	claims, err := s.claims.ListClaimsExpiringBetween(ctx, now, now.Add(ExpiringSoonThreshold))
	if err != nil {
		return 0, fmt.Errorf("querying expiring claims: %w", err)
	}

	sent := 0
	for _, claim := range claims {
		item, err := s.items.GetItem(ctx, claim.ItemID)
		if err != nil {
			utils.SafeError("Reminder for claim %s: loading item: %v", utils.MaskID(claim.ID), err)
			continue
		}
		if item == nil {
			utils.SafeDebug("Reminder for claim %s skipped: item %s is gone", utils.MaskID(claim.ID), utils.MaskID(claim.ItemID))
			continue
		}

		days := DaysLeft(*claim.ExpiresAt, now)
		res := s.notifications.CreateNotification(ctx, NotificationInput{
			UserID: claim.UserID,
			Type:   models.NotificationReminder,
			Title:  "Claim expiring soon",
			Body:   reminderBody(item.Name, days),
			Data: map[string]any{
				"item_id":   item.ID,
				"item_name": item.Name,
				"claim_id":  claim.ID,
				"days_left": days,
			},
		})
		if res.Success {
			sent++
		}
	}
	return sent, nil
}

// ReleaseExpired deletes every expired claim and notifies the claimer and the
// other recipients of the item.
func (s *ExpirationSweep) ReleaseExpired(ctx context.Context) (int, error) {
	claims, err := s.claims.ListClaimsExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("querying expired claims: %w", err)
	}

	released := 0
	for _, claim := range claims {
		item, err := s.items.GetItem(ctx, claim.ItemID)
		if err != nil {
			utils.SafeError("Expiring claim %s: loading item: %v", utils.MaskID(claim.ID), err)
			continue
		}

		ok, err := s.claims.DeleteClaim(ctx, claim.ID)
		if err != nil {
			utils.SafeError("Expiring claim %s: %v", utils.MaskID(claim.ID), err)
			continue
		}
		if !ok {
			utils.SafeDebug("Expiring claim %s skipped: already released", utils.MaskID(claim.ID))
			continue
		}
		released++
		utils.LogClaimAction("EXPIRE", claim.ID, claim.ItemID, claim.UserID)
		if item == nil {
			continue
		}

		s.notifications.CreateNotification(ctx, NotificationInput{
			UserID: claim.UserID,
			Type:   models.NotificationClaimExpired,
			Title:  "Claim Expired",
			Body:   fmt.Sprintf("Your claim on \"%s\" expired and was released.", item.Name),
			Data: map[string]any{
				"item_id":   item.ID,
				"item_name": item.Name,
				"claim_id":  claim.ID,
				"reason":    "expired",
			},
		})

		if _, err := notifyItemRecipients(ctx, s.items, s.notifications, item,
			availableAgainNotification(item, "expired"), claim.UserID); err != nil {
			utils.SafeError("Expiring claim %s: %v", utils.MaskID(claim.ID), err)
		}
	}
	return released, nil
}

// DaysLeft rounds the time until expiresAt up to whole days.
func DaysLeft(expiresAt, now time.Time) int {
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}

func reminderBody(itemName string, days int) string {
	if days == 1 {
		return fmt.Sprintf("Your claim on \"%s\" expires tomorrow.", itemName)
	}
	return fmt.Sprintf("Your claim on \"%s\" expires in %d days.", itemName, days)
}
