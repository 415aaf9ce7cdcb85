package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/services"
)

func TestPartialClaimsFillPrice(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	item := f.sharedItem(t, "Bike", price(1000))

	if _, err := f.claims.CreateClaim(ctx, item.ID, "alice", price(400)); err != nil {
		t.Fatalf("alice claim: %v", err)
	}

	// 400 + 700 would exceed the price.
	if _, err := f.claims.CreateClaim(ctx, item.ID, "bob", price(700)); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict for 700, got %v", err)
	}

	if _, err := f.claims.CreateClaim(ctx, item.ID, "bob", price(600)); err != nil {
		t.Fatalf("bob claim: %v", err)
	}

	view, err := f.items.Get(ctx, item.ID, "carol")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Claims == nil {
		t.Fatal("expected claim summary for recipient")
	}
	if view.Claims.State != models.ClaimStateFullyClaimedByOther {
		t.Errorf("expected fully_claimed_by_other, got %s", view.Claims.State)
	}
	if view.Claims.ClaimableAmount == nil || *view.Claims.ClaimableAmount != 0 {
		t.Errorf("expected claimable 0, got %v", view.Claims.ClaimableAmount)
	}

	aliceView, _ := f.items.Get(ctx, item.ID, "alice")
	if aliceView.Claims.State != models.ClaimStateFullyClaimedByMe {
		t.Errorf("expected fully_claimed_by_me for alice, got %s", aliceView.Claims.State)
	}
	if len(aliceView.Claims.MyClaims) != 1 || aliceView.Claims.OtherClaimCount != 1 {
		t.Errorf("unexpected alice summary: %+v", aliceView.Claims)
	}

	if _, err := f.claims.CreateClaim(ctx, item.ID, "carol", price(1)); !errors.Is(err, services.ErrConflict) {
		t.Errorf("expected conflict once fully covered, got %v", err)
	}
}

func TestFullAndPartialClaimsExclude(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	full := f.sharedItem(t, "Lamp", price(5000))
	if _, err := f.claims.CreateClaim(ctx, full.ID, "alice", nil); err != nil {
		t.Fatalf("full claim: %v", err)
	}
	if _, err := f.claims.CreateClaim(ctx, full.ID, "bob", price(100)); !errors.Is(err, services.ErrConflict) {
		t.Errorf("expected conflict for partial after full, got %v", err)
	}
	if _, err := f.claims.CreateClaim(ctx, full.ID, "bob", nil); !errors.Is(err, services.ErrConflict) {
		t.Errorf("expected conflict for second full claim, got %v", err)
	}

	partial := f.sharedItem(t, "Desk", price(5000))
	if _, err := f.claims.CreateClaim(ctx, partial.ID, "alice", price(100)); err != nil {
		t.Fatalf("partial claim: %v", err)
	}
	if _, err := f.claims.CreateClaim(ctx, partial.ID, "bob", nil); !errors.Is(err, services.ErrConflict) {
		t.Errorf("expected conflict for full after partial, got %v", err)
	}
}

func TestCreateClaimAccess(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	item := f.sharedItem(t, "Book", nil)

	tests := []struct {
		name   string
		itemID string
		userID string
	}{
		{"owner", item.ID, "owner"},
		{"not a recipient", item.ID, "stranger"},
		{"missing item", "missing", "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.claims.CreateClaim(ctx, tt.itemID, tt.userID, nil)
			if !errors.Is(err, services.ErrNotFound) {
				t.Errorf("expected not found, got %v", err)
			}
		})
	}
}

func TestCreateClaimValidation(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	unpriced := f.sharedItem(t, "Book", nil)
	if _, err := f.claims.CreateClaim(ctx, unpriced.ID, "alice", price(100)); !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error for partial on unpriced item, got %v", err)
	}

	zero := f.sharedItem(t, "Free thing", price(0))
	if _, err := f.claims.CreateClaim(ctx, zero.ID, "alice", price(100)); !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error for partial on zero price, got %v", err)
	}

	priced := f.sharedItem(t, "Pen", price(500))
	if _, err := f.claims.CreateClaim(ctx, priced.ID, "alice", price(0)); !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error for zero amount, got %v", err)
	}
	if _, err := f.claims.CreateClaim(ctx, priced.ID, "alice", price(-5)); !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error for negative amount, got %v", err)
	}

	claim, err := f.claims.CreateClaim(ctx, unpriced.ID, "alice", nil)
	if err != nil {
		t.Fatalf("full claim on unpriced item: %v", err)
	}
	if claim.ExpiresAt == nil || !claim.ExpiresAt.Equal(testNow.Add(services.DefaultClaimTTL)) {
		t.Errorf("expected expiry at now+ttl, got %v", claim.ExpiresAt)
	}
}

func TestClaimWithoutTTLNeverExpires(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	item := f.sharedItem(t, "Book", nil)

	svc := services.NewClaimService(f.repo, f.repo, f.notifications, 0)
	claim, err := svc.CreateClaim(ctx, item.ID, "alice", nil)
	if err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	if claim.ExpiresAt != nil {
		t.Errorf("expected no expiry, got %v", claim.ExpiresAt)
	}
}

func TestReleaseClaim(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	item := f.sharedItem(t, "Bike", price(1000))

	first, err := f.claims.CreateClaim(ctx, item.ID, "alice", price(200))
	if err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	if _, err := f.claims.CreateClaim(ctx, item.ID, "alice", price(300)); err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	bobClaim, _ := f.claims.CreateClaim(ctx, item.ID, "bob", price(100))

	// Only the claimer may release.
	if err := f.claims.ReleaseClaim(ctx, first.ID, "bob"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found releasing someone else's claim, got %v", err)
	}

	if err := f.claims.ReleaseClaim(ctx, first.ID, "alice"); err != nil {
		t.Fatalf("ReleaseClaim: %v", err)
	}
	if err := f.claims.ReleaseClaim(ctx, first.ID, "alice"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found on second release, got %v", err)
	}

	remaining, _ := f.repo.ListClaimsByItem(ctx, item.ID)
	if len(remaining) != 1 || remaining[0].ID != bobClaim.ID {
		t.Errorf("expected only bob's claim to remain, got %+v", remaining)
	}

	for _, id := range []string{"bob", "carol"} {
		if got := countType(f.inbox(t, id), models.NotificationClaimReleased); got != 1 {
			t.Errorf("expected 1 release notification for %s, got %d", id, got)
		}
	}
	if got := len(f.inbox(t, "alice")); got != 0 {
		t.Errorf("releaser should not be notified, got %d", got)
	}
	if got := len(f.inbox(t, "owner")); got != 0 {
		t.Errorf("owner should not be notified, got %d", got)
	}
}

func TestMarkPurchased(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	item := f.sharedItem(t, "Lamp", nil)

	claim, _ := f.claims.CreateClaim(ctx, item.ID, "alice", nil)

	if _, err := f.claims.UnmarkPurchased(ctx, claim.ID, "alice"); !errors.Is(err, services.ErrInvalidState) {
		t.Errorf("expected invalid state unmarking never-purchased claim, got %v", err)
	}
	if _, err := f.claims.MarkPurchased(ctx, claim.ID, "bob"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found for another user, got %v", err)
	}

	marked, err := f.claims.MarkPurchased(ctx, claim.ID, "alice")
	if err != nil {
		t.Fatalf("MarkPurchased: %v", err)
	}
	if marked.PurchasedAt == nil || !marked.PurchasedAt.Equal(testNow) {
		t.Errorf("expected purchased_at %v, got %v", testNow, marked.PurchasedAt)
	}

	if _, err := f.claims.MarkPurchased(ctx, claim.ID, "alice"); !errors.Is(err, services.ErrInvalidState) {
		t.Errorf("expected invalid state on second purchase, got %v", err)
	}

	if got := countType(f.inbox(t, "bob"), models.NotificationItemPurchased); got != 1 {
		t.Errorf("expected 1 purchase notification for bob, got %d", got)
	}
	if got := len(f.inbox(t, "owner")); got != 0 {
		t.Errorf("owner should not be notified, got %d", got)
	}

	unmarked, err := f.claims.UnmarkPurchased(ctx, claim.ID, "alice")
	if err != nil {
		t.Fatalf("UnmarkPurchased: %v", err)
	}
	if unmarked.PurchasedAt != nil {
		t.Error("expected purchased_at cleared")
	}
}

func TestDeleteItemCascade(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol", "dave")
	ctx := context.Background()
	item := f.sharedItem(t, "Bike", price(1000))

	for _, id := range []string{"alice", "bob", "carol"} {
		if _, err := f.claims.CreateClaim(ctx, item.ID, id, price(100)); err != nil {
			t.Fatalf("claim by %s: %v", id, err)
		}
	}
	// A second claim by the same user must not double the notification.
	f.claims.CreateClaim(ctx, item.ID, "alice", price(50))

	if err := f.claims.DeleteItemCascade(ctx, item.ID, "alice"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found for non-owner delete, got %v", err)
	}
	if err := f.claims.DeleteItemCascade(ctx, item.ID, "owner"); err != nil {
		t.Fatalf("DeleteItemCascade: %v", err)
	}

	total := 0
	for _, id := range []string{"alice", "bob", "carol", "dave", "owner"} {
		total += countType(f.inbox(t, id), models.NotificationItemDeleted)
	}
	if total != 3 {
		t.Errorf("expected exactly 3 item_deleted notifications, got %d", total)
	}

	if got, _ := f.repo.GetItem(ctx, item.ID); got != nil {
		t.Error("expected item to be deleted")
	}
	if claims, _ := f.repo.ListClaimsByItem(ctx, item.ID); len(claims) != 0 {
		t.Errorf("expected claims to be deleted, got %d", len(claims))
	}
}

func TestMarkReceived(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	item := f.sharedItem(t, "Lamp", nil)

	f.claims.CreateClaim(ctx, item.ID, "alice", nil)

	if _, err := f.claims.MarkReceived(ctx, item.ID, "alice"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected not found for non-owner, got %v", err)
	}

	received, err := f.claims.MarkReceived(ctx, item.ID, "owner")
	if err != nil {
		t.Fatalf("MarkReceived: %v", err)
	}
	if received.Status != models.ItemStatusReceived {
		t.Errorf("expected status received, got %s", received.Status)
	}

	if _, err := f.claims.MarkReceived(ctx, item.ID, "owner"); !errors.Is(err, services.ErrInvalidState) {
		t.Errorf("expected invalid state on second receive, got %v", err)
	}
	if _, err := f.claims.CreateClaim(ctx, item.ID, "bob", nil); !errors.Is(err, services.ErrInvalidState) {
		t.Errorf("expected invalid state claiming a received item, got %v", err)
	}

	if got := countType(f.inbox(t, "alice"), models.NotificationItemReceived); got != 1 {
		t.Errorf("expected 1 received notification for alice, got %d", got)
	}
	if got := len(f.inbox(t, "bob")); got != 0 {
		t.Errorf("bob has no claim and should not be notified, got %d", got)
	}
}

func TestConcurrentPartialClaimsNeverExceedPrice(t *testing.T) {
	users := make([]string, 10)
	for i := range users {
		users[i] = fmt.Sprintf("user%d", i)
	}
	f := newFixture(t, users...)
	ctx := context.Background()
	item := f.sharedItem(t, "Sofa", price(1000))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for _, id := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.claims.CreateClaim(ctx, item.ID, id, price(300)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if succeeded != 3 {
		t.Errorf("expected 3 successful claims, got %d", succeeded)
	}

	claims, _ := f.repo.ListClaimsByItem(ctx, item.ID)
	var sum int64
	for _, c := range claims {
		sum += *c.Amount
	}
	if sum > 1000 {
		t.Errorf("claimed %d exceeds price", sum)
	}
}

func TestListUserClaims(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	a := f.sharedItem(t, "A", nil)
	b := f.sharedItem(t, "B", price(100))
	f.claims.CreateClaim(ctx, a.ID, "alice", nil)
	f.claims.CreateClaim(ctx, b.ID, "alice", price(40))

	claims, err := f.claims.ListUserClaims(ctx, "alice")
	if err != nil {
		t.Fatalf("ListUserClaims: %v", err)
	}
	if len(claims) != 2 {
		t.Errorf("expected 2 claims, got %d", len(claims))
	}
}
