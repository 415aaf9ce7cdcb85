package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Port           string
	Storage        string
	DatabaseURL    string
	JWTSecret      string
	FrontendURL    string
	AllowedOrigins []string
	AdminSecret    string

	ClaimTTL      time.Duration
	SweepInterval time.Duration
	SweepEnabled  bool

	RateLimitRPS   float64
	RateLimitBurst int

	ResendAPIKey string
	FromEmail    string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Storage:      strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		AdminSecret:  os.Getenv("ADMIN_SECRET"),
		SweepEnabled: getEnv("SWEEP_ENABLED", "true") != "false",
		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		FromEmail:    os.Getenv("FROM_EMAIL"),
	}

	origins := getEnv("ALLOWED_ORIGINS", cfg.FrontendURL)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	ttlDays, err := strconv.Atoi(getEnv("CLAIM_TTL_DAYS", "30"))
	if err != nil || ttlDays < 0 {
		return nil, fmt.Errorf("CLAIM_TTL_DAYS must be a non-negative integer")
	}
	cfg.ClaimTTL = time.Duration(ttlDays) * 24 * time.Hour

	cfg.SweepInterval, err = time.ParseDuration(getEnv("SWEEP_INTERVAL", "24h"))
	if err != nil || cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be a positive duration")
	}

	cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64)
	if err != nil || cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be a positive number")
	}
	cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20"))
	if err != nil || cfg.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be a positive integer")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
