package models

import "time"

// Item statuses. An item only ever moves from active to received.
const (
	ItemStatusActive   = "active"
	ItemStatusReceived = "received"
)

type Item struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	URL       *string   `json:"url,omitempty"`
	Price     *int64    `json:"price,omitempty"` // cents, nil = no price tracking
	Notes     *string   `json:"notes,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPrice reports whether partial-claim arithmetic applies to the item.
func (i *Item) HasPrice() bool {
	return i.Price != nil && *i.Price > 0
}

// ItemView is an item as seen by a specific viewer. Claims is only set for
// recipients; owners never see it.
type ItemView struct {
	Item    Item          `json:"item"`
	IsOwner bool          `json:"is_owner"`
	Claims  *ClaimSummary `json:"claims,omitempty"`
}

type CreateItemRequest struct {
	Name     string  `json:"name" binding:"required,max=200"`
	URL      *string `json:"url" binding:"omitempty,url"`
	Price    *int64  `json:"price" binding:"omitempty,gte=0"`
	Notes    *string `json:"notes" binding:"omitempty,max=2000"`
	ImageURL *string `json:"image_url" binding:"omitempty,url"`
}

type UpdateItemRequest struct {
	Name     string  `json:"name" binding:"required,max=200"`
	URL      *string `json:"url" binding:"omitempty,url"`
	Price    *int64  `json:"price" binding:"omitempty,gte=0"`
	Notes    *string `json:"notes" binding:"omitempty,max=2000"`
	ImageURL *string `json:"image_url" binding:"omitempty,url"`
}

type ShareItemRequest struct {
	GroupID string `json:"group_id" binding:"required"`
}
