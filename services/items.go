package services

import (
	"context"
	"fmt"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/google/uuid"
)

type ItemService struct {
	items         ItemRepository
	claims        ClaimRepository
	groups        GroupRepository
	notifications *NotificationService
	now           func() time.Time
}

func NewItemService(items ItemRepository, claims ClaimRepository, groups GroupRepository, notifications *NotificationService) *ItemService {
	return &ItemService{
		items:         items,
		claims:        claims,
		groups:        groups,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *ItemService) SetClock(now func() time.Time) {
	s.now = now
}

// Create adds an item to the owner's wishlist.
func (s *ItemService) Create(ctx context.Context, ownerID string, req models.CreateItemRequest) (*models.Item, error) {
	now := s.now()
	item := &models.Item{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      req.Name,
		URL:       req.URL,
		Price:     req.Price,
		Notes:     req.Notes,
		ImageURL:  req.ImageURL,
		Status:    models.ItemStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	utils.LogItemAction("CREATE", item.ID, ownerID)
	return item, nil
}

// Get returns the item as seen by viewerID. The owner gets the bare item;
// recipients also get the claim summary.
func (s *ItemService) Get(ctx context.Context, itemID, viewerID string) (*models.ItemView, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}

	if item.OwnerID == viewerID {
		return &models.ItemView{Item: *item, IsOwner: true}, nil
	}

	recipient, err := s.items.IsItemRecipient(ctx, itemID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("checking item access: %w", err)
	}
	if !recipient {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}

	return s.recipientView(ctx, item, viewerID)
}

// ListOwn returns the owner's wishlist without any claim information.
func (s *ItemService) ListOwn(ctx context.Context, ownerID string) ([]models.ItemView, error) {
	items, err := s.items.ListItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	views := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, models.ItemView{Item: item, IsOwner: true})
	}
	return views, nil
}

// ListShared returns items other users shared with the viewer's groups.
func (s *ItemService) ListShared(ctx context.Context, viewerID string) ([]models.ItemView, error) {
	items, err := s.items.ListItemsSharedWith(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("listing shared items: %w", err)
	}

	var visible []models.Item
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.OwnerID == viewerID {
			continue
		}
		visible = append(visible, item)
		ids = append(ids, item.ID)
	}

	claimsByItem, err := s.claims.ListClaimsByItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}

	now := s.now()
	views := make([]models.ItemView, 0, len(visible))
	for i := range visible {
		views = append(views, models.ItemView{
			Item:   visible[i],
			Claims: SummarizeClaims(&visible[i], claimsByItem[visible[i].ID], viewerID, now),
		})
	}
	return views, nil
}

// Update replaces the editable fields. Partial claims the new price no longer
// covers are released in the same step and their claimers are notified. The
// result never depends on claims.
func (s *ItemService) Update(ctx context.Context, itemID, ownerID string, req models.UpdateItemRequest) (*models.Item, error) {
	item, err := s.owned(ctx, itemID, ownerID)
	if err != nil {
		return nil, err
	}

	item.Name = req.Name
	item.URL = req.URL
	item.Price = req.Price
	item.Notes = req.Notes
	item.ImageURL = req.ImageURL
	item.UpdatedAt = s.now()

	newPrice := item.Price
	released, err := s.items.UpdateItem(ctx, item, func(existing []models.Claim) []models.Claim {
		return UncoveredPartialClaims(newPrice, existing)
	})
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	utils.LogItemAction("UPDATE", itemID, ownerID)
	if len(released) > 0 {
		s.notifyPriceReleased(*item, released)
	}
	return item, nil
}

func (s *ItemService) notifyPriceReleased(item models.Item, released []models.Claim) {
	for _, c := range released {
		utils.LogClaimAction("RELEASE_PRICE", c.ID, item.ID, c.UserID)
	}

	targets := notificationTargets(item.OwnerID, claimerIDs(released))
	s.notifications.Dispatch("price_release", func(ctx context.Context) error {
		s.notifications.NotifyUsers(ctx, targets, NotificationInput{
			Type:  models.NotificationClaimReleased,
			Title: "Claim released",
			Body:  fmt.Sprintf("The price of \"%s\" changed and your claim was released.", item.Name),
			Data: map[string]any{
				"item_id":   item.ID,
				"item_name": item.Name,
				"reason":    "price_changed",
			},
		})
		return nil
	})
}

// Share makes the item visible to a group the owner belongs to.
func (s *ItemService) Share(ctx context.Context, itemID, ownerID, groupID string) error {
	if _, err := s.owned(ctx, itemID, ownerID); err != nil {
		return err
	}

	member, err := s.groups.IsMember(ctx, groupID, ownerID)
	if err != nil {
		return fmt.Errorf("checking group membership: %w", err)
	}
	if !member {
		return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}

	if err := s.items.ShareItem(ctx, itemID, groupID); err != nil {
		return fmt.Errorf("sharing item: %w", err)
	}

	utils.LogItemAction("SHARE", itemID, ownerID)
	return nil
}

func (s *ItemService) Unshare(ctx context.Context, itemID, ownerID, groupID string) error {
	if _, err := s.owned(ctx, itemID, ownerID); err != nil {
		return err
	}

	ok, err := s.items.UnshareItem(ctx, itemID, groupID)
	if err != nil {
		return fmt.Errorf("unsharing item: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: item is not shared with group %s", ErrNotFound, groupID)
	}
	return nil
}

func (s *ItemService) recipientView(ctx context.Context, item *models.Item, viewerID string) (*models.ItemView, error) {
	claims, err := s.claims.ListClaimsByItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	return &models.ItemView{
		Item:   *item,
		Claims: SummarizeClaims(item, claims, viewerID, s.now()),
	}, nil
}

func (s *ItemService) owned(ctx context.Context, itemID, ownerID string) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading item: %w", err)
	}
	if item == nil || item.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	return item, nil
}
