package routes

import (
	"net/http"
	"time"

	"github.com/LovationAdmin/giftlist-api/handlers"
	"github.com/LovationAdmin/giftlist-api/middleware"
	"github.com/LovationAdmin/giftlist-api/migration"
	"github.com/LovationAdmin/giftlist-api/services"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

// Services bundles what the HTTP layer needs.
type Services struct {
	Users         *services.UserService
	Items         *services.ItemService
	Claims        *services.ClaimService
	Groups        *services.GroupService
	Notifications *services.NotificationService
	Maintenance   *services.Maintenance
	ClaimStore    migration.ClaimExpiryStore
	ClaimTTL      time.Duration
}

type Options struct {
	JWTSecret      string
	AdminSecret    string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter wires middleware and every route group.
func NewRouter(svc Services, ws *handlers.WSHandler, opts Options) *gin.Engine {
	handlers.RegisterValidation()

	router := gin.New()
	router.Use(gin.Recovery())

	utils.SafeInfo("🌍 CORS: Allowing origins: %v", opts.AllowedOrigins)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Admin-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	router.Use(middleware.RequestLogger())
	if opts.RateLimitRPS > 0 {
		router.Use(middleware.NewIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": Version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		SetupAuthRoutes(v1, handlers.NewAuthHandler(svc.Users))
		if ws != nil {
			v1.GET("/ws/notifications", ws.HandleWS)
		}
		SetupAdminRoutes(v1, handlers.NewAdminHandler(svc.Maintenance, svc.ClaimStore, svc.ClaimTTL), opts.AdminSecret)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(opts.JWTSecret))
		{
			SetupItemRoutes(protected, handlers.NewItemHandler(svc.Items, svc.Claims))
			SetupClaimRoutes(protected, handlers.NewClaimHandler(svc.Claims))
			SetupGroupRoutes(protected, handlers.NewGroupHandler(svc.Groups))
			SetupNotificationRoutes(protected, handlers.NewNotificationHandler(svc.Notifications))
			SetupUserRoutes(protected, handlers.NewUserHandler(svc.Users))
		}
	}

	return router
}

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler) {
	rg.POST("/auth/signup", h.Signup)
	rg.POST("/auth/login", h.Login)
}

// SetupItemRoutes sets up wishlist item routes.
func SetupItemRoutes(rg *gin.RouterGroup, h *handlers.ItemHandler) {
	rg.POST("/items", h.CreateItem)
	rg.GET("/items", h.ListItems)
	rg.GET("/items/shared", h.ListSharedItems)
	rg.GET("/items/:id", h.GetItem)
	rg.PUT("/items/:id", h.UpdateItem)
	rg.DELETE("/items/:id", h.DeleteItem)
	rg.POST("/items/:id/received", h.MarkReceived)
	rg.POST("/items/:id/share", h.ShareItem)
	rg.DELETE("/items/:id/share/:group_id", h.UnshareItem)
}

func SetupClaimRoutes(rg *gin.RouterGroup, h *handlers.ClaimHandler) {
	rg.POST("/claims", h.CreateClaim)
	rg.GET("/claims", h.ListClaims)
	rg.DELETE("/claims/:id", h.ReleaseClaim)
	rg.POST("/claims/:id/purchase", h.MarkPurchased)
	rg.DELETE("/claims/:id/purchase", h.UnmarkPurchased)
}

// SetupGroupRoutes sets up groups, invitations and member management.
func SetupGroupRoutes(rg *gin.RouterGroup, h *handlers.GroupHandler) {
	rg.POST("/groups", h.CreateGroup)
	rg.GET("/groups", h.ListGroups)
	rg.GET("/groups/:id", h.GetGroup)
	rg.DELETE("/groups/:id", h.DeleteGroup)

	rg.POST("/groups/:id/invite", h.InviteUser)
	rg.GET("/groups/:id/invitations", h.GetInvitations)
	rg.DELETE("/groups/:id/invitations/:invitation_id", h.CancelInvitation)
	rg.DELETE("/groups/:id/members/:member_id", h.RemoveMember)
	rg.POST("/invitations/accept", h.AcceptInvitation)
}

func SetupNotificationRoutes(rg *gin.RouterGroup, h *handlers.NotificationHandler) {
	rg.GET("/notifications", h.ListNotifications)
	rg.GET("/notifications/unread-count", h.UnreadCount)
	rg.POST("/notifications/:id/read", h.MarkRead)
	rg.POST("/notifications/read-all", h.MarkAllRead)
}

// SetupUserRoutes sets up protected user routes.
func SetupUserRoutes(rg *gin.RouterGroup, h *handlers.UserHandler) {
	rg.GET("/user/profile", h.GetProfile)
	rg.PUT("/user/profile", h.UpdateProfile)
	rg.POST("/user/password", h.ChangePassword)
	rg.POST("/user/2fa/setup", h.Setup2FA)
	rg.POST("/user/2fa/verify", h.Verify2FA)
	rg.POST("/user/2fa/disable", h.Disable2FA)
}

// SetupAdminRoutes sets up maintenance routes for external cron.
func SetupAdminRoutes(rg *gin.RouterGroup, h *handlers.AdminHandler, secret string) {
	admin := rg.Group("/admin", middleware.AdminSecret(secret))
	admin.POST("/claims/sweep", h.RunClaimSweep)
	admin.POST("/claims/backfill-expiry", h.BackfillClaimExpiry)
}
