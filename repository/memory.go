package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/services"

	"github.com/google/uuid"
)

// Memory is an in-process store implementing every repository interface.
// Used with STORAGE=memory and in tests.
type Memory struct {
	mu            sync.Mutex
	users         map[string]models.User
	groups        map[string]models.Group
	members       map[string]models.GroupMember // key: groupID/userID
	invitations   map[string]models.Invitation
	items         map[string]models.Item
	shares        map[string]map[string]bool // itemID -> groupIDs
	claims        map[string]models.Claim
	notifications map[string]models.Notification
}

var (
	_ services.ItemRepository         = (*Memory)(nil)
	_ services.ClaimRepository        = (*Memory)(nil)
	_ services.GroupRepository        = (*Memory)(nil)
	_ services.NotificationRepository = (*Memory)(nil)
	_ services.UserRepository         = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]models.User),
		groups:        make(map[string]models.Group),
		members:       make(map[string]models.GroupMember),
		invitations:   make(map[string]models.Invitation),
		items:         make(map[string]models.Item),
		shares:        make(map[string]map[string]bool),
		claims:        make(map[string]models.Claim),
		notifications: make(map[string]models.Notification),
	}
}

func memberKey(groupID, userID string) string {
	return groupID + "/" + userID
}

// ============================================================================
// ITEMS
// ============================================================================

func (m *Memory) CreateItem(ctx context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = *item
	return nil
}

func (m *Memory) GetItem(ctx context.Context, id string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *Memory) ListItemsByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Item
	for _, item := range m.items {
		if item.OwnerID == ownerID {
			out = append(out, item)
		}
	}
	sortItems(out)
	return out, nil
}

func (m *Memory) ListItemsSharedWith(ctx context.Context, userID string) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Item
	for id, item := range m.items {
		if m.isRecipientLocked(id, userID) {
			out = append(out, item)
		}
	}
	sortItems(out)
	return out, nil
}

func (m *Memory) UpdateItem(ctx context.Context, item *models.Item, guard services.ItemUpdateGuard) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return nil, fmt.Errorf("item %s: %w", item.ID, services.ErrNotFound)
	}

	var released []models.Claim
	if guard != nil {
		released = guard(m.claimsWhereLocked(func(c models.Claim) bool { return c.ItemID == item.ID }))
	}
	for _, c := range released {
		delete(m.claims, c.ID)
	}
	m.items[item.ID] = *item
	return released, nil
}

func (m *Memory) UpdateItemStatus(ctx context.Context, id, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Status != from {
		return false, nil
	}
	item.Status = to
	item.UpdatedAt = time.Now()
	m.items[id] = item
	return true, nil
}

func (m *Memory) DeleteItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	delete(m.shares, id)
	for cid, c := range m.claims {
		if c.ItemID == id {
			delete(m.claims, cid)
		}
	}
	return nil
}

func (m *Memory) ShareItem(ctx context.Context, itemID, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shares[itemID] == nil {
		m.shares[itemID] = make(map[string]bool)
	}
	m.shares[itemID][groupID] = true
	return nil
}

func (m *Memory) UnshareItem(ctx context.Context, itemID, groupID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.shares[itemID][groupID] {
		return false, nil
	}
	delete(m.shares[itemID], groupID)
	return true, nil
}

func (m *Memory) ListItemRecipients(ctx context.Context, itemID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for groupID := range m.shares[itemID] {
		for _, member := range m.members {
			if member.GroupID == groupID && !seen[member.UserID] {
				seen[member.UserID] = true
				out = append(out, member.UserID)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) IsItemRecipient(ctx context.Context, itemID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRecipientLocked(itemID, userID), nil
}

func (m *Memory) isRecipientLocked(itemID, userID string) bool {
	for groupID := range m.shares[itemID] {
		if _, ok := m.members[memberKey(groupID, userID)]; ok {
			return true
		}
	}
	return false
}

func sortItems(items []models.Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// ============================================================================
// CLAIMS
// ============================================================================

func (m *Memory) CreateClaim(ctx context.Context, claim *models.Claim, guard services.ClaimGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[claim.ItemID]
	if !ok {
		return fmt.Errorf("item %s: %w", claim.ItemID, services.ErrNotFound)
	}
	existing := m.claimsWhereLocked(func(c models.Claim) bool { return c.ItemID == claim.ItemID })
	if guard != nil {
		if err := guard(&item, existing); err != nil {
			return err
		}
	}

	m.claims[claim.ID] = *claim
	return nil
}

func (m *Memory) GetClaim(ctx context.Context, id string) (*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.claims[id]
	if !ok {
		return nil, nil
	}
	return &claim, nil
}

func (m *Memory) ListClaimsByItem(ctx context.Context, itemID string) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimsWhereLocked(func(c models.Claim) bool { return c.ItemID == itemID }), nil
}

func (m *Memory) ListClaimsByItems(ctx context.Context, itemIDs []string) (map[string][]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	out := make(map[string][]models.Claim)
	for _, c := range m.claimsWhereLocked(func(c models.Claim) bool { return wanted[c.ItemID] }) {
		out[c.ItemID] = append(out[c.ItemID], c)
	}
	return out, nil
}

func (m *Memory) ListClaimsByUser(ctx context.Context, userID string) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimsWhereLocked(func(c models.Claim) bool { return c.UserID == userID }), nil
}

func (m *Memory) DeleteUserClaimsOnItem(ctx context.Context, itemID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.claims {
		if c.ItemID == itemID && c.UserID == userID {
			delete(m.claims, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteClaim(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[id]; !ok {
		return false, nil
	}
	delete(m.claims, id)
	return true, nil
}

func (m *Memory) MarkClaimPurchased(ctx context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.claims[id]
	if !ok || claim.PurchasedAt != nil {
		return false, nil
	}
	claim.PurchasedAt = &at
	m.claims[id] = claim
	return true, nil
}

func (m *Memory) UnmarkClaimPurchased(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.claims[id]
	if !ok || claim.PurchasedAt == nil {
		return false, nil
	}
	claim.PurchasedAt = nil
	m.claims[id] = claim
	return true, nil
}

func (m *Memory) ListClaimsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimsWhereLocked(func(c models.Claim) bool {
		return c.ExpiresAt != nil && c.ExpiresAt.After(from) && c.ExpiresAt.Before(to)
	}), nil
}

func (m *Memory) ListClaimsExpiredBefore(ctx context.Context, t time.Time) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimsWhereLocked(func(c models.Claim) bool {
		return c.ExpiresAt != nil && c.ExpiresAt.Before(t)
	}), nil
}

func (m *Memory) SetClaimExpiry(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.claims[id]
	if !ok || claim.ExpiresAt != nil {
		return false, nil
	}
	claim.ExpiresAt = &expiresAt
	m.claims[id] = claim
	return true, nil
}

func (m *Memory) ListClaimsWithoutExpiry(ctx context.Context) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimsWhereLocked(func(c models.Claim) bool { return c.ExpiresAt == nil }), nil
}

func (m *Memory) claimsWhereLocked(match func(models.Claim) bool) []models.Claim {
	var out []models.Claim
	for _, c := range m.claims {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ============================================================================
// GROUPS & INVITATIONS
// ============================================================================

func (m *Memory) CreateGroup(ctx context.Context, group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := *group
	g.Members = nil
	m.groups[group.ID] = g
	m.members[memberKey(group.ID, group.OwnerID)] = models.GroupMember{
		ID:       uuid.New().String(),
		GroupID:  group.ID,
		UserID:   group.OwnerID,
		Role:     models.GroupRoleOwner,
		JoinedAt: group.CreatedAt,
	}
	return nil
}

func (m *Memory) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *Memory) ListUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Group
	for id, g := range m.groups {
		if _, ok := m.members[memberKey(id, userID)]; ok {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GroupMember
	for _, member := range m.members {
		if member.GroupID != groupID {
			continue
		}
		if u, ok := m.users[member.UserID]; ok {
			member.UserName = u.Name
			member.UserEmail = u.Email
		}
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *Memory) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[memberKey(groupID, userID)]
	return ok, nil
}

func (m *Memory) AddMember(ctx context.Context, member *models.GroupMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memberKey(member.GroupID, member.UserID)
	if _, ok := m.members[key]; ok {
		return fmt.Errorf("member of group %s: %w", member.GroupID, services.ErrConflict)
	}
	m.members[key] = *member
	return nil
}

func (m *Memory) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memberKey(groupID, userID)
	if _, ok := m.members[key]; !ok {
		return false, nil
	}
	delete(m.members, key)
	return true, nil
}

func (m *Memory) DeleteGroup(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, id)
	for key, member := range m.members {
		if member.GroupID == id {
			delete(m.members, key)
		}
	}
	for invID, inv := range m.invitations {
		if inv.GroupID == id {
			delete(m.invitations, invID)
		}
	}
	for _, groups := range m.shares {
		delete(groups, id)
	}
	return nil
}

func (m *Memory) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations[inv.ID] = *inv
	return nil
}

func (m *Memory) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.Token == token {
			return &inv, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetPendingInvitation(ctx context.Context, groupID, email string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Invitation
	for _, inv := range m.invitations {
		if inv.GroupID == groupID && strings.EqualFold(inv.Email, email) && inv.Status == models.InvitationPending {
			if latest == nil || inv.CreatedAt.After(latest.CreatedAt) {
				found := inv
				latest = &found
			}
		}
	}
	return latest, nil
}

func (m *Memory) ListInvitations(ctx context.Context, groupID string) ([]models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Invitation
	for _, inv := range m.invitations {
		if inv.GroupID == groupID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateInvitationStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return fmt.Errorf("invitation %s: %w", id, services.ErrNotFound)
	}
	inv.Status = status
	m.invitations[id] = inv
	return nil
}

func (m *Memory) DeletePendingInvitation(ctx context.Context, groupID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok || inv.GroupID != groupID || inv.Status != models.InvitationPending {
		return false, nil
	}
	delete(m.invitations, id)
	return true, nil
}

func (m *Memory) ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, inv := range m.invitations {
		if inv.Status == models.InvitationPending && inv.ExpiresAt.Before(now) {
			inv.Status = models.InvitationExpired
			m.invitations[id] = inv
			n++
		}
	}
	return n, nil
}

// ============================================================================
// NOTIFICATIONS
// ============================================================================

func (m *Memory) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = *n
	return nil
}

func (m *Memory) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Read = true
	n.UpdatedAt = time.Now()
	m.notifications[id] = n
	return true, nil
}

func (m *Memory) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.UpdatedAt = time.Now()
			m.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (m *Memory) CountUnread(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *Memory) PurgeReadNotifications(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, n := range m.notifications {
		if n.Read && n.CreatedAt.Before(before) {
			delete(m.notifications, id)
			count++
		}
	}
	return count, nil
}

// ============================================================================
// USERS
// ============================================================================

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %s: %w", user.Email, services.ErrConflict)
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpdateProfile(ctx context.Context, id, name, avatar string) error {
	return m.updateUser(id, func(u *models.User) {
		u.Name = name
		u.Avatar = avatar
	})
}

func (m *Memory) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.updateUser(id, func(u *models.User) { u.PasswordHash = hash })
}

func (m *Memory) SetTOTP(ctx context.Context, id, secret string, enabled bool) error {
	return m.updateUser(id, func(u *models.User) {
		u.TOTPSecret = secret
		u.TOTPEnabled = enabled
	})
}

func (m *Memory) updateUser(id string, apply func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, services.ErrNotFound)
	}
	apply(&u)
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}
