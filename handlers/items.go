package handlers

import (
	"net/http"

	"github.com/LovationAdmin/giftlist-api/middleware"
	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/services"

	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	Items  *services.ItemService
	Claims *services.ClaimService
}

func NewItemHandler(items *services.ItemService, claims *services.ClaimService) *ItemHandler {
	return &ItemHandler{Items: items, Claims: claims}
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req models.CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.Items.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newItemResponse(item, true, nil))
}

// ListItems returns the caller's own wishlist.
func (h *ItemHandler) ListItems(c *gin.Context) {
	views, err := h.Items.ListOwn(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": newItemViewResponses(views)})
}

// ListSharedItems returns items from other members, with claim summaries.
func (h *ItemHandler) ListSharedItems(c *gin.Context) {
	views, err := h.Items.ListShared(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": newItemViewResponses(views)})
}

func (h *ItemHandler) GetItem(c *gin.Context) {
	view, err := h.Items.Get(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(&view.Item, view.IsOwner, view.Claims))
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	var req models.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.Items.Update(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item, true, nil))
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	if err := h.Claims.DeleteItemCascade(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ItemHandler) MarkReceived(c *gin.Context) {
	item, err := h.Claims.MarkReceived(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item, true, nil))
}

func (h *ItemHandler) ShareItem(c *gin.Context) {
	var req models.ShareItemRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Items.Share(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.GroupID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item shared"})
}

func (h *ItemHandler) UnshareItem(c *gin.Context) {
	if err := h.Items.Unshare(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), c.Param("group_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
