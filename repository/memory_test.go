package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/services"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func seedGroups(t *testing.T, m *Memory) {
	t.Helper()
	ctx := context.Background()

	m.CreateGroup(ctx, &models.Group{ID: "g1", OwnerID: "owner", CreatedAt: now})
	m.CreateGroup(ctx, &models.Group{ID: "g2", OwnerID: "owner", CreatedAt: now})
	for _, gm := range []struct{ group, user string }{{"g1", "alice"}, {"g2", "alice"}, {"g2", "bob"}} {
		if err := m.AddMember(ctx, &models.GroupMember{ID: gm.group + gm.user, GroupID: gm.group, UserID: gm.user}); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	m.CreateItem(ctx, &models.Item{ID: "item", OwnerID: "owner", Name: "Lamp", Status: models.ItemStatusActive, CreatedAt: now})
	m.ShareItem(ctx, "item", "g1")
	m.ShareItem(ctx, "item", "g2")
}

func TestRecipientsAreDeduplicated(t *testing.T) {
	m := NewMemory()
	seedGroups(t, m)
	ctx := context.Background()

	recipients, _ := m.ListItemRecipients(ctx, "item")
	want := []string{"alice", "bob", "owner"}
	if fmt.Sprint(recipients) != fmt.Sprint(want) {
		t.Errorf("recipients = %v, want %v", recipients, want)
	}

	if ok, _ := m.IsItemRecipient(ctx, "item", "carol"); ok {
		t.Error("carol is not a recipient")
	}

	if err := m.AddMember(ctx, &models.GroupMember{GroupID: "g1", UserID: "alice"}); !errors.Is(err, services.ErrConflict) {
		t.Errorf("expected conflict for duplicate member, got %v", err)
	}
}

func TestCreateClaimRunsGuardAtomically(t *testing.T) {
	m := NewMemory()
	seedGroups(t, m)
	ctx := context.Background()

	// Guard allows a claim only while the item has none.
	guard := func(item *models.Item, existing []models.Claim) error {
		if len(existing) > 0 {
			return services.ErrConflict
		}
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := m.CreateClaim(ctx, &models.Claim{ID: fmt.Sprintf("c%d", i), ItemID: "item", UserID: "alice", CreatedAt: now}, guard)
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected exactly 1 claim, got %d", created)
	}

	if err := m.CreateClaim(ctx, &models.Claim{ID: "x", ItemID: "missing"}, nil); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found for missing item, got %v", err)
	}
}

func TestUpdateItemReleasesGuardedClaims(t *testing.T) {
	m := NewMemory()
	seedGroups(t, m)
	ctx := context.Background()

	amount := int64(300)
	m.CreateClaim(ctx, &models.Claim{ID: "c1", ItemID: "item", UserID: "alice", Amount: &amount, CreatedAt: now}, nil)
	m.CreateClaim(ctx, &models.Claim{ID: "c2", ItemID: "item", UserID: "bob", Amount: &amount, CreatedAt: now.Add(time.Minute)}, nil)

	var seen []string
	released, err := m.UpdateItem(ctx, &models.Item{ID: "item", OwnerID: "owner", Name: "Desk lamp", Status: models.ItemStatusActive},
		func(existing []models.Claim) []models.Claim {
			for _, c := range existing {
				seen = append(seen, c.ID)
			}
			return existing[1:]
		})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if fmt.Sprint(seen) != "[c1 c2]" {
		t.Errorf("guard should see claims oldest first, got %v", seen)
	}
	if len(released) != 1 || released[0].ID != "c2" {
		t.Errorf("released = %+v, want c2", released)
	}

	left, _ := m.ListClaimsByItem(ctx, "item")
	if len(left) != 1 || left[0].ID != "c1" {
		t.Errorf("claims left = %+v, want c1", left)
	}
	item, _ := m.GetItem(ctx, "item")
	if item.Name != "Desk lamp" {
		t.Errorf("item not written, got %q", item.Name)
	}

	if _, err := m.UpdateItem(ctx, &models.Item{ID: "missing"}, nil); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found for missing item, got %v", err)
	}
}

func TestDeleteItemCascades(t *testing.T) {
	m := NewMemory()
	seedGroups(t, m)
	ctx := context.Background()

	m.CreateClaim(ctx, &models.Claim{ID: "c1", ItemID: "item", UserID: "alice"}, nil)
	if err := m.DeleteItem(ctx, "item"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if c, _ := m.GetClaim(ctx, "c1"); c != nil {
		t.Error("claim should be deleted with its item")
	}
	if r, _ := m.ListItemRecipients(ctx, "item"); len(r) != 0 {
		t.Errorf("shares should be deleted with the item, got %v", r)
	}
}

func TestDeleteGroupCascades(t *testing.T) {
	m := NewMemory()
	seedGroups(t, m)
	ctx := context.Background()

	m.CreateInvitation(ctx, &models.Invitation{ID: "inv", GroupID: "g2", Email: "c@example.com", Token: "t", Status: models.InvitationPending})
	if err := m.DeleteGroup(ctx, "g2"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	if ok, _ := m.IsItemRecipient(ctx, "item", "bob"); ok {
		t.Error("bob lost access with the group")
	}
	if ok, _ := m.IsItemRecipient(ctx, "item", "alice"); !ok {
		t.Error("alice keeps access through g1")
	}
	if inv, _ := m.GetInvitationByToken(ctx, "t"); inv != nil {
		t.Error("invitation should be deleted with the group")
	}
}

func TestExpiryWindowsAreStrict(t *testing.T) {
	m := NewMemory()
	seedGroups(t, m)
	ctx := context.Background()

	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	claims := []models.Claim{
		{ID: "past", ExpiresAt: at(-time.Minute)},
		{ID: "now", ExpiresAt: at(0)},
		{ID: "soon", ExpiresAt: at(time.Hour)},
		{ID: "edge", ExpiresAt: at(72 * time.Hour)},
		{ID: "never"},
	}
	for i := range claims {
		claims[i].ItemID = "item"
		m.CreateClaim(ctx, &claims[i], nil)
	}

	expired, _ := m.ListClaimsExpiredBefore(ctx, now)
	if len(expired) != 1 || expired[0].ID != "past" {
		t.Errorf("expired = %v", expired)
	}

	expiring, _ := m.ListClaimsExpiringBetween(ctx, now, now.Add(72*time.Hour))
	if len(expiring) != 1 || expiring[0].ID != "soon" {
		t.Errorf("expiring = %v", expiring)
	}

	without, _ := m.ListClaimsWithoutExpiry(ctx)
	if len(without) != 1 || without[0].ID != "never" {
		t.Errorf("without expiry = %v", without)
	}

	if ok, _ := m.SetClaimExpiry(ctx, "soon", now); ok {
		t.Error("SetClaimExpiry must not overwrite an existing expiry")
	}
	if ok, _ := m.SetClaimExpiry(ctx, "never", now); !ok {
		t.Error("SetClaimExpiry should set a missing expiry")
	}
}

func TestPurchaseIsConditional(t *testing.T) {
	m := NewMemory()
	seedGroups(t, m)
	ctx := context.Background()
	m.CreateClaim(ctx, &models.Claim{ID: "c", ItemID: "item", UserID: "alice"}, nil)

	if ok, _ := m.UnmarkClaimPurchased(ctx, "c"); ok {
		t.Error("unmark should fail on an unpurchased claim")
	}
	if ok, _ := m.MarkClaimPurchased(ctx, "c", now); !ok {
		t.Error("first mark should succeed")
	}
	if ok, _ := m.MarkClaimPurchased(ctx, "c", now); ok {
		t.Error("second mark should fail")
	}
	if ok, _ := m.UpdateItemStatus(ctx, "item", models.ItemStatusReceived, models.ItemStatusActive); ok {
		t.Error("status update from the wrong state should fail")
	}
}

func TestUserEmailsAreCaseInsensitive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.CreateUser(ctx, &models.User{ID: "u1", Email: "alice@example.com"})
	if err := m.CreateUser(ctx, &models.User{ID: "u2", Email: "ALICE@example.com"}); !errors.Is(err, services.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if u, _ := m.GetUserByEmail(ctx, "Alice@Example.com"); u == nil || u.ID != "u1" {
		t.Errorf("lookup by email failed: %+v", u)
	}
	if err := m.UpdatePassword(ctx, "missing", "x"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
