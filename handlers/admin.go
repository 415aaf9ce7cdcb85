// handlers/admin.go
package handlers

import (
	"net/http"
	"time"

	"github.com/LovationAdmin/giftlist-api/migration"
	"github.com/LovationAdmin/giftlist-api/services"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes maintenance jobs for an external scheduler. Routes are
// guarded by middleware.AdminSecret.
type AdminHandler struct {
	Maintenance *services.Maintenance
	ClaimStore  migration.ClaimExpiryStore
	ClaimTTL    time.Duration
}

func NewAdminHandler(maintenance *services.Maintenance, claimStore migration.ClaimExpiryStore, claimTTL time.Duration) *AdminHandler {
	return &AdminHandler{Maintenance: maintenance, ClaimStore: claimStore, ClaimTTL: claimTTL}
}

// RunClaimSweep handles POST /admin/claims/sweep.
func (h *AdminHandler) RunClaimSweep(c *gin.Context) {
	start := time.Now()
	result, err := h.Maintenance.RunDaily(c.Request.Context())
	if err != nil {
		utils.SafeError("❌ Claim sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Claim sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reminders_sent":  result.RemindersSent,
		"claims_released": result.ClaimsReleased,
		"duration":        time.Since(start).String(),
	})
}

// BackfillClaimExpiry handles POST /admin/claims/backfill-expiry.
func (h *AdminHandler) BackfillClaimExpiry(c *gin.Context) {
	result, err := migration.BackfillClaimExpiry(c.Request.Context(), h.ClaimStore, h.ClaimTTL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
