package models

import (
	"encoding/json"
	"time"
)

// Notification types.
const (
	NotificationClaimReleased = "claim_released"
	NotificationClaimExpired  = "claim_expired"
	NotificationItemPurchased = "item_purchased"
	NotificationItemDeleted   = "item_deleted"
	NotificationItemReceived  = "item_received"
	NotificationReminder      = "reminder"
	NotificationInvitation    = "invitation"
)

type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
