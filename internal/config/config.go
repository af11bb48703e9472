// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/clubctl.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names, matching schema.sql.
// --------------------------------------------------------------------------

const (
	TeamsTable         = "teams"
	ParentsTable       = "parents"
	PlayersTable       = "players"
	PlayerParentsTable = "player_parents"
	PaymentsTable      = "payments"
	WebhookEventsTable = "webhook_events"
	OutboxTable        = "outbox_emails"
	ScheduleTable      = "schedule_events"
)

// --------------------------------------------------------------------------
// Config is populated from environment variables.
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	PublicURL   string // used to build checkout success/cancel links
	Environment string // development, staging, production
	Debug       bool
	LogLevel    slog.Level
	LogFormat   string // text, json

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Uploads
	MaxUploadBytes int64

	// Payments (Stripe)
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	FeeScheduleFile     string

	// Email (SendGrid)
	SendGridAPIKey string
	EmailFromName  string
	EmailFromAddr  string
	EmailMaxTries  int

	// Club identity, printed on PDFs and emails
	ClubName    string
	ClubAddress string
	ClubEmail   string

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("SUPABASE_DB_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or SUPABASE_DB_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		PublicURL:   strings.TrimRight(envOr("PUBLIC_URL", "http://localhost:5173"), "/"),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),
		LogLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),
		LogFormat:   envOr("LOG_FORMAT", "text"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		SessionSecret: envOr("SESSION_SECRET", ""),
		SessionTTL:    time.Duration(envInt("SESSION_TTL_HOURS", 12)) * time.Hour,

		MaxUploadBytes: int64(envInt("MAX_UPLOAD_MB", 10)) << 20,

		StripeSecretKey:     envOr("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: envOr("STRIPE_WEBHOOK_SECRET", ""),
		Currency:            strings.ToLower(envOr("CURRENCY", "usd")),
		FeeScheduleFile:     envOr("FEE_SCHEDULE_FILE", ""),

		SendGridAPIKey: envOr("SENDGRID_API_KEY", ""),
		EmailFromName:  envOr("EMAIL_FROM_NAME", "Courtside Basketball"),
		EmailFromAddr:  envOr("EMAIL_FROM_ADDRESS", "no-reply@courtside.example"),
		EmailMaxTries:  envInt("EMAIL_MAX_ATTEMPTS", 5),

		ClubName:    envOr("CLUB_NAME", "Courtside Youth Basketball"),
		ClubAddress: envOr("CLUB_ADDRESS", ""),
		ClubEmail:   envOr("CLUB_EMAIL", "info@courtside.example"),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("SESSION_SECRET must be set in production")
		}
		cfg.SessionSecret = "dev-only-session-secret-change-me!!"
	}
	if len(cfg.SessionSecret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}

	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PaymentsEnabled reports whether Stripe credentials are configured.
func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			return lvl
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
