package handlers

import (
	"net/http"

	"github.com/LovationAdmin/giftlist-api/middleware"
	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/services"

	"github.com/gin-gonic/gin"
)

type ClaimHandler struct {
	Claims *services.ClaimService
}

func NewClaimHandler(claims *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{Claims: claims}
}

// CreateClaim handles POST /claims. Omitting amount claims the whole item.
func (h *ClaimHandler) CreateClaim(c *gin.Context) {
	var req models.CreateClaimRequest
	if !bindJSON(c, &req) {
		return
	}

	claim, err := h.Claims.CreateClaim(c.Request.Context(), req.ItemID, middleware.GetUserID(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newClaimResponse(claim))
}

func (h *ClaimHandler) ListClaims(c *gin.Context) {
	claims, err := h.Claims.ListUserClaims(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": newClaimResponses(claims)})
}

// ReleaseClaim handles DELETE /claims/:id.
func (h *ClaimHandler) ReleaseClaim(c *gin.Context) {
	if err := h.Claims.ReleaseClaim(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClaimHandler) MarkPurchased(c *gin.Context) {
	claim, err := h.Claims.MarkPurchased(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newClaimResponse(claim))
}

func (h *ClaimHandler) UnmarkPurchased(c *gin.Context) {
	claim, err := h.Claims.UnmarkPurchased(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newClaimResponse(claim))
}
