package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/repository"
	"github.com/LovationAdmin/giftlist-api/services"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo          *repository.Memory
	notifications *services.NotificationService
	claims        *services.ClaimService
	items         *services.ItemService
	sweep         *services.ExpirationSweep
	now           time.Time
}

// newFixture builds services over a memory store. "owner" owns group "family"
// whose members are the given users.
func newFixture(t *testing.T, members ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{repo: repository.NewMemory(), now: testNow}
	clock := func() time.Time { return f.now }

	f.notifications = services.NewNotificationService(f.repo)
	f.notifications.SetClock(clock)
	f.claims = services.NewClaimService(f.repo, f.repo, f.notifications, services.DefaultClaimTTL)
	f.claims.SetClock(clock)
	f.items = services.NewItemService(f.repo, f.repo, f.repo, f.notifications)
	f.items.SetClock(clock)
	f.sweep = services.NewExpirationSweep(f.repo, f.repo, f.notifications)
	f.sweep.SetClock(clock)

	for _, id := range append([]string{"owner", "stranger"}, members...) {
		err := f.repo.CreateUser(ctx, &models.User{ID: id, Email: id + "@example.com", Name: id, CreatedAt: testNow})
		if err != nil {
			t.Fatalf("CreateUser %s: %v", id, err)
		}
	}

	if err := f.repo.CreateGroup(ctx, &models.Group{ID: "family", Name: "Family", OwnerID: "owner", CreatedAt: testNow}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	for i, id := range members {
		err := f.repo.AddMember(ctx, &models.GroupMember{
			ID:       fmt.Sprintf("m%d", i),
			GroupID:  "family",
			UserID:   id,
			Role:     models.GroupRoleMember,
			JoinedAt: testNow,
		})
		if err != nil {
			t.Fatalf("AddMember %s: %v", id, err)
		}
	}
	return f
}

// sharedItem creates an item owned by "owner" and shares it with the family.
func (f *fixture) sharedItem(t *testing.T, name string, price *int64) *models.Item {
	t.Helper()
	ctx := context.Background()

	item, err := f.items.Create(ctx, "owner", models.CreateItemRequest{Name: name, Price: price})
	if err != nil {
		t.Fatalf("Create item: %v", err)
	}
	if err := f.items.Share(ctx, item.ID, "owner", "family"); err != nil {
		t.Fatalf("Share: %v", err)
	}
	return item
}

// inbox waits for detached fan-out and returns the user's notifications.
func (f *fixture) inbox(t *testing.T, userID string) []models.Notification {
	t.Helper()
	f.notifications.Wait()
	list, err := f.repo.ListNotifications(context.Background(), userID, false, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	return list
}

func countType(list []models.Notification, typ string) int {
	n := 0
	for _, item := range list {
		if item.Type == typ {
			n++
		}
	}
	return n
}

func price(v int64) *int64 {
	return &v
}
