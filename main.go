package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LovationAdmin/giftlist-api/config"
	"github.com/LovationAdmin/giftlist-api/handlers"
	"github.com/LovationAdmin/giftlist-api/repository"
	"github.com/LovationAdmin/giftlist-api/routes"
	"github.com/LovationAdmin/giftlist-api/services"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// store is what every backend provides.
type store interface {
	services.ItemRepository
	services.ClaimRepository
	services.GroupRepository
	services.NotificationRepository
	services.UserRepository
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	if utils.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var repo store
	switch cfg.Storage {
	case config.StorageMemory:
		utils.SafeWarn("⚠️ Using in-memory storage, data is lost on restart")
		repo = repository.NewMemory()
	default:
		db, err := config.InitDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database: ", err)
		}
		defer db.Close()
		log.Println("✅ Database connected successfully")

		if err := config.RunMigrations(db); err != nil {
			log.Fatal("Failed to run migrations: ", err)
		}
		repo = repository.NewPostgres(db)
	}

	ws := handlers.NewWSHandler(cfg.JWTSecret)
	defer ws.Close()

	notifications := services.NewNotificationService(repo)
	notifications.SetPusher(ws)

	mailer := utils.NewMailer(cfg.ResendAPIKey, cfg.FromEmail, cfg.FrontendURL)
	groups := services.NewGroupService(repo, repo, notifications, mailer)
	claims := services.NewClaimService(repo, repo, notifications, cfg.ClaimTTL)
	sweep := services.NewExpirationSweep(repo, repo, notifications)
	maintenance := services.NewMaintenance(sweep, notifications, groups)

	router := routes.NewRouter(routes.Services{
		Users:         services.NewUserService(repo, cfg.JWTSecret),
		Items:         services.NewItemService(repo, repo, repo, notifications),
		Claims:        claims,
		Groups:        groups,
		Notifications: notifications,
		Maintenance:   maintenance,
		ClaimStore:    repo,
		ClaimTTL:      cfg.ClaimTTL,
	}, ws, routes.Options{
		JWTSecret:      cfg.JWTSecret,
		AdminSecret:    cfg.AdminSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SweepEnabled {
		go scheduleClaimSweep(ctx, maintenance, cfg.SweepInterval)
	} else {
		log.Println("⏸️ In-process claim sweep disabled, rely on POST /api/v1/admin/claims/sweep")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	utils.LogStartup("Giftlist API", routes.Version, cfg.Port)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server shutdown: %v", err)
	}
	notifications.Wait()
}

// scheduleClaimSweep runs the daily maintenance job once at startup and then
// on every tick.
func scheduleClaimSweep(ctx context.Context, m *services.Maintenance, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runClaimSweep(ctx, m)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runClaimSweep(ctx, m)
		}
	}
}

func runClaimSweep(ctx context.Context, m *services.Maintenance) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	if _, err := m.RunDaily(ctx); err != nil {
		log.Printf("❌ Claim sweep failed: %v", err)
	}
}
