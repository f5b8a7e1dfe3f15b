// Package config loads process-wide configuration once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. It is populated once by Load and
// treated as immutable; components receive it (or slices of it) explicitly.
type Config struct {
	// Server
	Port    string
	BaseURL string
	DBPath  string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Polar
	PolarAccessToken        string
	PolarEnvironment        string // "sandbox" or "production"
	PolarWebhookSecret      string // subscription/product event route
	PolarOrderWebhookSecret string // custom order event route
	CheckoutSuccessURL      string

	// Email (Postmark)
	PostmarkToken string
	FromEmail     string

	// Rate limiting
	RateLimitPerMinute int
}

// Load reads configuration from the environment, optionally seeded from a
// .env file in the working directory. Required variables that are unset are
// reported together in a single error so a misconfigured deploy fails fast
// with the full picture.
//
// The webhook secrets are deliberately not required here: the webhook
// handlers answer 500 when their secret is missing, which keeps a partially
// configured instance serving its read paths.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{}

	var missing []string

	cfg.PolarAccessToken = os.Getenv("POLAR_ACCESS_TOKEN")
	if cfg.PolarAccessToken == "" {
		missing = append(missing, "POLAR_ACCESS_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Port = getEnvString("PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.Port)
	cfg.DBPath = getEnvString("DB_PATH", "polarkit.db")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "text")

	cfg.PolarEnvironment = getEnvString("POLAR_ENVIRONMENT", "sandbox")
	if cfg.PolarEnvironment != "sandbox" && cfg.PolarEnvironment != "production" {
		return nil, fmt.Errorf("POLAR_ENVIRONMENT must be %q or %q, got %q", "sandbox", "production", cfg.PolarEnvironment)
	}
	cfg.PolarWebhookSecret = os.Getenv("POLAR_WEBHOOK_SECRET")
	cfg.PolarOrderWebhookSecret = os.Getenv("POLAR_ORDER_WEBHOOK_SECRET")
	cfg.CheckoutSuccessURL = getEnvString("CHECKOUT_SUCCESS_URL", cfg.BaseURL+"/dashboard?checkout=success")

	cfg.PostmarkToken = os.Getenv("POSTMARK_TOKEN")
	cfg.FromEmail = os.Getenv("FROM_EMAIL")

	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 20)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
