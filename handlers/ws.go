package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

const wsUserKey = "user_id"

// WSHandler pushes notifications to connected clients. Each session is keyed
// by the authenticated user id.
type WSHandler struct {
	M         *melody.Melody
	jwtSecret string
}

type wsMessage struct {
	Type         string               `json:"type"`
	Notification NotificationResponse `json:"notification"`
}

func NewWSHandler(jwtSecret string) *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 4 * 1024

	// Keep-alive for hosted proxies that drop idle connections.
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		utils.LogWebSocket("CONNECT", sessionUser(s))
	})

	m.HandleDisconnect(func(s *melody.Session) {
		utils.LogWebSocket("DISCONNECT", sessionUser(s))
	})

	m.HandleError(func(s *melody.Session, err error) {
		utils.SafeWarn("⚠️ WebSocket error: %v", err)
	})

	return &WSHandler{M: m, jwtSecret: jwtSecret}
}

// HandleWS upgrades GET /ws/notifications?token=<jwt>. Browsers cannot set
// headers on websocket requests, hence the query parameter.
func (h *WSHandler) HandleWS(c *gin.Context) {
	claims, err := utils.ValidateAccessToken(h.jwtSecret, c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]any{wsUserKey: claims.UserID}); err != nil {
		utils.SafeWarn("⚠️ Failed to upgrade websocket: %v", err)
	}
}

// PushToUser sends n to every open session of userID.
func (h *WSHandler) PushToUser(userID string, n *models.Notification) {
	msg, err := json.Marshal(wsMessage{Type: "notification", Notification: newNotificationResponse(n)})
	if err != nil {
		utils.SafeError("Encoding websocket message: %v", err)
		return
	}

	err = h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		return sessionUser(s) == userID
	})
	if err != nil {
		utils.SafeWarn("⚠️ Error pushing notification to %s: %v", utils.MaskID(userID), err)
	}
}

func (h *WSHandler) Close() error {
	return h.M.Close()
}

func sessionUser(s *melody.Session) string {
	v, _ := s.Get(wsUserKey)
	id, _ := v.(string)
	return id
}
