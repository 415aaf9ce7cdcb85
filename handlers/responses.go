package handlers

import (
	"encoding/json"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
)

// Response DTOs. All timestamps leave the API as RFC 3339 UTC strings.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

type ClaimResponse struct {
	ID          string  `json:"id"`
	ItemID      string  `json:"item_id"`
	Amount      *int64  `json:"amount"`
	IsFull      bool    `json:"is_full"`
	Purchased   bool    `json:"purchased"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
	PurchasedAt *string `json:"purchased_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func newClaimResponse(c *models.Claim) ClaimResponse {
	return ClaimResponse{
		ID:          c.ID,
		ItemID:      c.ItemID,
		Amount:      c.Amount,
		IsFull:      c.IsFull(),
		Purchased:   c.PurchasedAt != nil,
		ExpiresAt:   formatOptionalTime(c.ExpiresAt),
		PurchasedAt: formatOptionalTime(c.PurchasedAt),
		CreatedAt:   formatTime(c.CreatedAt),
	}
}

func newClaimResponses(claims []models.Claim) []ClaimResponse {
	out := make([]ClaimResponse, 0, len(claims))
	for i := range claims {
		out = append(out, newClaimResponse(&claims[i]))
	}
	return out
}

type ClaimSummaryResponse struct {
	State           models.ClaimState `json:"state"`
	ClaimableAmount *int64            `json:"claimable_amount"`
	MyClaims        []ClaimResponse   `json:"my_claims"`
	OtherClaimCount int               `json:"other_claim_count"`
}

type ItemResponse struct {
	ID        string                `json:"id"`
	OwnerID   string                `json:"owner_id"`
	Name      string                `json:"name"`
	URL       *string               `json:"url,omitempty"`
	Price     *int64                `json:"price"`
	Notes     *string               `json:"notes,omitempty"`
	ImageURL  *string               `json:"image_url,omitempty"`
	Status    string                `json:"status"`
	IsOwner   bool                  `json:"is_owner"`
	Claims    *ClaimSummaryResponse `json:"claims,omitempty"`
	CreatedAt string                `json:"created_at"`
	UpdatedAt string                `json:"updated_at"`
}

func newItemResponse(item *models.Item, isOwner bool, summary *models.ClaimSummary) ItemResponse {
	resp := ItemResponse{
		ID:        item.ID,
		OwnerID:   item.OwnerID,
		Name:      item.Name,
		URL:       item.URL,
		Price:     item.Price,
		Notes:     item.Notes,
		ImageURL:  item.ImageURL,
		Status:    item.Status,
		IsOwner:   isOwner,
		CreatedAt: formatTime(item.CreatedAt),
		UpdatedAt: formatTime(item.UpdatedAt),
	}
	// Owners never get claim data, whatever the caller passed.
	if summary != nil && !isOwner {
		resp.Claims = &ClaimSummaryResponse{
			State:           summary.State,
			ClaimableAmount: summary.ClaimableAmount,
			MyClaims:        newClaimResponses(summary.MyClaims),
			OtherClaimCount: summary.OtherClaimCount,
		}
	}
	return resp
}

func newItemViewResponses(views []models.ItemView) []ItemResponse {
	out := make([]ItemResponse, 0, len(views))
	for i := range views {
		out = append(out, newItemResponse(&views[i].Item, views[i].IsOwner, views[i].Claims))
	}
	return out
}

type NotificationResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data"`
	Read      bool            `json:"read"`
	CreatedAt string          `json:"created_at"`
}

func newNotificationResponse(n *models.Notification) NotificationResponse {
	data := n.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Data:      data,
		Read:      n.Read,
		CreatedAt: formatTime(n.CreatedAt),
	}
}

type MemberResponse struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

type GroupResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	OwnerID   string           `json:"owner_id"`
	IsOwner   bool             `json:"is_owner"`
	Members   []MemberResponse `json:"members,omitempty"`
	CreatedAt string           `json:"created_at"`
}

func newGroupResponse(g *models.Group) GroupResponse {
	resp := GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		IsOwner:   g.IsOwner,
		CreatedAt: formatTime(g.CreatedAt),
	}
	for _, m := range g.Members {
		resp.Members = append(resp.Members, MemberResponse{
			UserID:   m.UserID,
			Name:     m.UserName,
			Email:    m.UserEmail,
			Role:     m.Role,
			JoinedAt: formatTime(m.JoinedAt),
		})
	}
	return resp
}

// InvitationResponse leaves out the token, which only travels by e-mail.
type InvitationResponse struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

func newInvitationResponse(inv *models.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:        inv.ID,
		GroupID:   inv.GroupID,
		Email:     inv.Email,
		Status:    inv.Status,
		ExpiresAt: formatTime(inv.ExpiresAt),
		CreatedAt: formatTime(inv.CreatedAt),
	}
}

type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar,omitempty"`
	TOTPEnabled bool   `json:"totp_enabled"`
	CreatedAt   string `json:"created_at"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Avatar:      u.Avatar,
		TOTPEnabled: u.TOTPEnabled,
		CreatedAt:   formatTime(u.CreatedAt),
	}
}
