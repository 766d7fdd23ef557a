package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	AppBaseURL  string `env:"APP_BASE_URL" default:"http://localhost:3000"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`

	StripeSecretKey     string        `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	StripePricePremium  string        `env:"STRIPE_PRICE_PREMIUM"`
	StripePriceKing     string        `env:"STRIPE_PRICE_KING"`
	WebhookTolerance    time.Duration `env:"WEBHOOK_TOLERANCE" default:"5m"`
	WebhookGuardSize    int           `env:"WEBHOOK_GUARD_CAPACITY" default:"1000"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" default:"20"`

	// Optional; messages are stored in plaintext when empty.
	MessageEncryptionKey string `env:"MESSAGE_ENCRYPTION_KEY"`

	S3Bucket    string        `env:"S3_BUCKET"`
	S3Region    string        `env:"S3_REGION" default:"eu-central-1"`
	S3Endpoint  string        `env:"S3_ENDPOINT"`
	S3AccessKey string        `env:"S3_ACCESS_KEY"`
	S3SecretKey string        `env:"S3_SECRET_KEY"`
	S3URLTTL    time.Duration `env:"S3_URL_TTL" default:"15m"`

	AssistantURL    string `env:"ASSISTANT_URL"`
	AssistantAPIKey string `env:"ASSISTANT_API_KEY"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`

	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PhotosEnabled reports whether object storage is configured.
func (c *Config) PhotosEnabled() bool {
	return c.S3Bucket != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := []struct{ name, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"SUPABASE_JWT_SECRET", cfg.SupabaseJWTSecret},
		{"STRIPE_SECRET_KEY", cfg.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret},
		{"STRIPE_PRICE_PREMIUM", cfg.StripePricePremium},
		{"STRIPE_PRICE_KING", cfg.StripePriceKing},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if !strings.HasPrefix(cfg.StripeWebhookSecret, "whsec_") {
		return errors.New("STRIPE_WEBHOOK_SECRET must start with whsec_")
	}

	if cfg.WebhookGuardSize < 1 {
		return errors.New("WEBHOOK_GUARD_CAPACITY must be at least 1")
	}

	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if cfg.MessageEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.MessageEncryptionKey)
		if err != nil {
			return fmt.Errorf("MESSAGE_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("MESSAGE_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	if cfg.IsProduction() {
		if err := checkSSLMode(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	return nil
}

func checkSSLMode(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
