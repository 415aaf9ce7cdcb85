package services

import (
	"context"
	"time"

	"github.com/LovationAdmin/giftlist-api/utils"
)

// ReadNotificationRetention is how long read notifications are kept.
const ReadNotificationRetention = 90 * 24 * time.Hour

// Maintenance is the daily job: claim sweep plus housekeeping.
type Maintenance struct {
	sweep         *ExpirationSweep
	notifications *NotificationService
	groups        *GroupService
}

func NewMaintenance(sweep *ExpirationSweep, notifications *NotificationService, groups *GroupService) *Maintenance {
	return &Maintenance{sweep: sweep, notifications: notifications, groups: groups}
}

// RunDaily runs the claim sweep, then purges old read notifications and
// expires stale invitations. Only a sweep failure is returned.
func (m *Maintenance) RunDaily(ctx context.Context) (SweepResult, error) {
	result, err := m.sweep.Run(ctx)
	if err != nil {
		return result, err
	}

	if purged, err := m.notifications.PurgeRead(ctx, ReadNotificationRetention); err != nil {
		utils.SafeWarn("⚠️ Purging read notifications failed: %v", err)
	} else if purged > 0 {
		utils.SafeInfo("🗑️ Purged %d read notifications", purged)
	}

	if expired, err := m.groups.ExpireStaleInvitations(ctx); err != nil {
		utils.SafeWarn("⚠️ Expiring invitations failed: %v", err)
	} else if expired > 0 {
		utils.SafeInfo("✉️ Marked %d invitations expired", expired)
	}

	return result, nil
}
