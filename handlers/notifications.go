package handlers

import (
	"net/http"
	"strconv"

	"github.com/LovationAdmin/giftlist-api/middleware"
	"github.com/LovationAdmin/giftlist-api/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications}
}

// ListNotifications accepts ?unread=true and ?limit=N.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := h.Notifications.List(c.Request.Context(), middleware.GetUserID(c), unreadOnly, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]NotificationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, newNotificationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"notifications": resp})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.Notifications.UnreadCount(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Notifications.MarkRead(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.Notifications.MarkAllRead(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
