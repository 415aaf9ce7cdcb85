package services

import (
	"context"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
)

// Repository getters return (nil, nil) when the row does not exist.

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	ListItemsByOwner(ctx context.Context, ownerID string) ([]models.Item, error)
	// ListItemsSharedWith returns items shared with any group the user belongs to.
	ListItemsSharedWith(ctx context.Context, userID string) ([]models.Item, error)
	// UpdateItem writes the editable fields and deletes the claims guard
	// selects, atomically with respect to CreateClaim on the same item. It
	// returns the deleted claims.
	UpdateItem(ctx context.Context, item *models.Item, guard ItemUpdateGuard) ([]models.Claim, error)
	// UpdateItemStatus moves an item from one status to another and reports
	// whether the item was in the expected status.
	UpdateItemStatus(ctx context.Context, id, from, to string) (bool, error)
	// DeleteItem removes the item with its claims and shares.
	DeleteItem(ctx context.Context, id string) error
	ShareItem(ctx context.Context, itemID, groupID string) error
	UnshareItem(ctx context.Context, itemID, groupID string) (bool, error)
	// ListItemRecipients returns the distinct members of every group the item
	// is shared with. The owner is not filtered out.
	ListItemRecipients(ctx context.Context, itemID string) ([]string, error)
	IsItemRecipient(ctx context.Context, itemID, userID string) (bool, error)
}

// ClaimGuard inspects the locked item and its current claims and rejects the
// insert by returning an error.
type ClaimGuard func(item *models.Item, existing []models.Claim) error

// ItemUpdateGuard picks, from the item's current claims, the ones an update
// releases.
type ItemUpdateGuard func(existing []models.Claim) []models.Claim

type ClaimRepository interface {
	// CreateClaim runs guard and the insert atomically with respect to other
	// claims on the same item.
	CreateClaim(ctx context.Context, claim *models.Claim, guard ClaimGuard) error
	GetClaim(ctx context.Context, id string) (*models.Claim, error)
	ListClaimsByItem(ctx context.Context, itemID string) ([]models.Claim, error)
	// ListClaimsByItems groups the claims of several items by item id.
	ListClaimsByItems(ctx context.Context, itemIDs []string) (map[string][]models.Claim, error)
	ListClaimsByUser(ctx context.Context, userID string) ([]models.Claim, error)
	DeleteUserClaimsOnItem(ctx context.Context, itemID, userID string) (int64, error)
	DeleteClaim(ctx context.Context, id string) (bool, error)
	// MarkClaimPurchased sets purchased_at only if it is unset.
	MarkClaimPurchased(ctx context.Context, id string, at time.Time) (bool, error)
	// UnmarkClaimPurchased clears purchased_at only if it is set.
	UnmarkClaimPurchased(ctx context.Context, id string) (bool, error)
	// ListClaimsExpiringBetween returns claims with from < expires_at < to.
	ListClaimsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Claim, error)
	// ListClaimsExpiredBefore returns claims with expires_at < t.
	ListClaimsExpiredBefore(ctx context.Context, t time.Time) ([]models.Claim, error)
	// SetClaimExpiry fills expires_at on a claim that has none.
	SetClaimExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error)
	ListClaimsWithoutExpiry(ctx context.Context) ([]models.Claim, error)
}

type GroupRepository interface {
	// CreateGroup inserts the group and its owner membership together.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListUserGroups(ctx context.Context, userID string) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	AddMember(ctx context.Context, member *models.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)
	DeleteGroup(ctx context.Context, id string) error

	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	GetPendingInvitation(ctx context.Context, groupID, email string) (*models.Invitation, error)
	ListInvitations(ctx context.Context, groupID string) ([]models.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, id, status string) error
	// DeletePendingInvitation removes a pending invitation of the group.
	DeletePendingInvitation(ctx context.Context, groupID, id string) (bool, error)
	// ExpireStaleInvitations marks pending invitations past their expiry as expired.
	ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	PurgeReadNotifications(ctx context.Context, before time.Time) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name, avatar string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetTOTP(ctx context.Context, id, secret string, enabled bool) error
}
