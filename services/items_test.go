package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/repository"
	"github.com/LovationAdmin/giftlist-api/services"
)

func TestOwnerNeverSeesClaims(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	item := f.sharedItem(t, "Lamp", price(2000))

	if _, err := f.claims.CreateClaim(ctx, item.ID, "alice", price(500)); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}

	view, err := f.items.Get(ctx, item.ID, "owner")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !view.IsOwner || view.Claims != nil {
		t.Errorf("owner view should carry no claims, got %+v", view)
	}

	own, _ := f.items.ListOwn(ctx, "owner")
	if len(own) != 1 || own[0].Claims != nil {
		t.Errorf("owner list should carry no claims, got %+v", own)
	}
}

func TestGetItemHiddenFromOutsiders(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	item := f.sharedItem(t, "Lamp", nil)

	if _, err := f.items.Get(ctx, item.ID, "stranger"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found for outsider, got %v", err)
	}
	if _, err := f.items.Get(ctx, "missing", "alice"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found for missing item, got %v", err)
	}

	view, err := f.items.Get(ctx, item.ID, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Claims == nil || view.Claims.State != models.ClaimStateUnclaimed {
		t.Errorf("expected unclaimed summary, got %+v", view.Claims)
	}
	if view.Claims.MyClaims == nil {
		t.Error("MyClaims should be an empty list, not nil")
	}
}

func TestListShared(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	first := f.sharedItem(t, "Lamp", price(1000))
	f.sharedItem(t, "Book", nil)

	// Alice's own shared item must not appear in her shared list.
	mine, _ := f.items.Create(ctx, "alice", models.CreateItemRequest{Name: "Scarf"})
	if err := f.items.Share(ctx, mine.ID, "alice", "family"); err != nil {
		t.Fatalf("Share: %v", err)
	}

	f.claims.CreateClaim(ctx, first.ID, "alice", price(250))

	views, err := f.items.ListShared(ctx, "alice")
	if err != nil {
		t.Fatalf("ListShared: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 shared items, got %d", len(views))
	}
	for _, v := range views {
		if v.Item.OwnerID == "alice" {
			t.Error("own item listed as shared")
		}
		if v.Item.ID == first.ID && v.Claims.State != models.ClaimStatePartiallyClaimed {
			t.Errorf("expected partially_claimed, got %s", v.Claims.State)
		}
	}

	ownerShared, _ := f.items.ListShared(ctx, "owner")
	if len(ownerShared) != 1 || ownerShared[0].Item.ID != mine.ID {
		t.Errorf("owner should see only alice's item, got %+v", ownerShared)
	}
}

func TestUpdatePriceReleasesUncoveredClaims(t *testing.T) {
	tests := []struct {
		name     string
		price    *int64
		released []string
	}{
		{"raised", price(1500), nil},
		{"exactly claimed", price(700), nil},
		{"one below claimed", price(699), []string{"bob"}},
		{"below both", price(299), []string{"alice", "bob"}},
		{"removed", nil, []string{"alice", "bob"}},
		{"zeroed", price(0), []string{"alice", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "alice", "bob", "carol")
			ctx := context.Background()
			item := f.sharedItem(t, "Bike", price(1000))

			f.claims.CreateClaim(ctx, item.ID, "alice", price(300))
			f.now = f.now.Add(time.Minute)
			f.claims.CreateClaim(ctx, item.ID, "bob", price(400))

			updated, err := f.items.Update(ctx, item.ID, "owner", models.UpdateItemRequest{Name: "Bike", Price: tt.price})
			if err != nil {
				t.Fatalf("owner update must not fail on claims: %v", err)
			}
			if updated.Name != "Bike" {
				t.Errorf("unexpected item %+v", updated)
			}

			remaining, _ := f.repo.ListClaimsByItem(ctx, item.ID)
			if len(remaining) != 2-len(tt.released) {
				t.Errorf("expected %d claims left, got %d", 2-len(tt.released), len(remaining))
			}
			for _, user := range []string{"alice", "bob"} {
				want := 0
				for _, r := range tt.released {
					if r == user {
						want = 1
					}
				}
				if got := countType(f.inbox(t, user), models.NotificationClaimReleased); got != want {
					t.Errorf("%s: expected %d claim_released, got %d", user, want, got)
				}
			}
			if n := len(f.inbox(t, "owner")) + len(f.inbox(t, "carol")); n != 0 {
				t.Errorf("owner and bystanders should not be notified, got %d", n)
			}
		})
	}
}

func TestUpdateKeepsFullClaimWhenPriceRemoved(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	item := f.sharedItem(t, "Bike", price(1000))

	if _, err := f.claims.CreateClaim(ctx, item.ID, "alice", nil); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	if _, err := f.items.Update(ctx, item.ID, "owner", models.UpdateItemRequest{Name: "Bike"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	remaining, _ := f.repo.ListClaimsByItem(ctx, item.ID)
	if len(remaining) != 1 {
		t.Errorf("full claim should survive, got %d claims", len(remaining))
	}
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	f := newFixture(t, "alice")
	item := f.sharedItem(t, "Bike", price(1000))

	_, err := f.items.Update(context.Background(), item.ID, "alice", models.UpdateItemRequest{Name: "Mine"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found for non-owner update, got %v", err)
	}
}

// claimLandsFirst places a claim right before the item write goes through.
type claimLandsFirst struct {
	*repository.Memory
	before func()
}

func (r *claimLandsFirst) UpdateItem(ctx context.Context, item *models.Item, guard services.ItemUpdateGuard) ([]models.Claim, error) {
	if r.before != nil {
		r.before()
		r.before = nil
	}
	return r.Memory.UpdateItem(ctx, item, guard)
}

func partialSum(t *testing.T, f *fixture, itemID string) int64 {
	t.Helper()
	claims, err := f.repo.ListClaimsByItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("ListClaimsByItem: %v", err)
	}
	var sum int64
	for _, c := range claims {
		if c.Amount != nil {
			sum += *c.Amount
		}
	}
	return sum
}

func TestUpdatePriceSeesClaimPlacedDuringUpdate(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	item := f.sharedItem(t, "Bike", price(1000))

	if _, err := f.claims.CreateClaim(ctx, item.ID, "alice", price(400)); err != nil {
		t.Fatalf("CreateClaim alice: %v", err)
	}

	repo := &claimLandsFirst{Memory: f.repo, before: func() {
		f.now = f.now.Add(time.Minute)
		if _, err := f.claims.CreateClaim(ctx, item.ID, "bob", price(600)); err != nil {
			t.Errorf("CreateClaim bob: %v", err)
		}
	}}
	items := services.NewItemService(repo, f.repo, f.repo, f.notifications)

	if _, err := items.Update(ctx, item.ID, "owner", models.UpdateItemRequest{Name: "Bike", Price: price(500)}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if sum := partialSum(t, f, item.ID); sum > 500 {
		t.Errorf("partial claims total %d exceed price 500", sum)
	}
	if got := countType(f.inbox(t, "bob"), models.NotificationClaimReleased); got != 1 {
		t.Errorf("bob's late claim should be released, got %d notifications", got)
	}
	if got := countType(f.inbox(t, "alice"), models.NotificationClaimReleased); got != 0 {
		t.Errorf("alice's older claim should be kept, got %d notifications", got)
	}
}

func TestUpdatePriceConcurrentWithClaims(t *testing.T) {
	users := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9"}
	f := newFixture(t, users...)
	ctx := context.Background()
	item := f.sharedItem(t, "Bike", price(1000))

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			f.claims.CreateClaim(ctx, item.ID, u, price(100))
		}(u)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := f.items.Update(ctx, item.ID, "owner", models.UpdateItemRequest{Name: "Bike", Price: price(500)}); err != nil {
			t.Errorf("Update: %v", err)
		}
	}()
	wg.Wait()

	if sum := partialSum(t, f, item.ID); sum > 500 {
		t.Errorf("partial claims total %d exceed price 500", sum)
	}
}

func TestShareRequiresMembership(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	item, _ := f.items.Create(ctx, "stranger", models.CreateItemRequest{Name: "Hat"})
	if err := f.items.Share(ctx, item.ID, "stranger", "family"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found sharing into a foreign group, got %v", err)
	}

	shared := f.sharedItem(t, "Lamp", nil)
	if err := f.items.Unshare(ctx, shared.ID, "owner", "family"); err != nil {
		t.Fatalf("Unshare: %v", err)
	}
	if err := f.items.Unshare(ctx, shared.ID, "owner", "family"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found on second unshare, got %v", err)
	}
	if _, err := f.items.Get(ctx, shared.ID, "alice"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("unshared item should be hidden, got %v", err)
	}
}
