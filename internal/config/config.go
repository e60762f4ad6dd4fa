package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
// It is constructed once at process start and passed by reference into
// every component; nothing re-reads ambient state per call.
type Config struct {
	AppEnv string
	Port   string

	StripeSecretKey     string
	StripeWebhookSecret string

	PublicBaseURL    string
	DefaultCurrency  string
	TaxRate          decimal.Decimal
	AllowedCountries []string

	CORSAllowedOrigins []string

	RedisURL      string
	MongoURI      string
	MongoDatabase string

	ProviderTimeout  time.Duration
	WebhookReplayTTL time.Duration
	MaxBodyBytes     int64

	RateLimitWindow time.Duration
	RateLimitMax    int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	taxRate, err := parseDecimal(k.String("TAX_RATE"), "0.05")
	if err != nil {
		return nil, fmt.Errorf("TAX_RATE: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("PORT"), "8080"),
		StripeSecretKey:     strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
		StripeWebhookSecret: strings.TrimSpace(k.String("STRIPE_WEBHOOK_SECRET")),
		PublicBaseURL:       strings.TrimRight(valueOrDefault(k.String("PUBLIC_BASE_URL"), "http://localhost:5173"), "/"),
		DefaultCurrency:     strings.ToLower(valueOrDefault(k.String("DEFAULT_CURRENCY"), "usd")),
		TaxRate:             taxRate,
		AllowedCountries:    splitAndTrim(valueOrDefault(k.String("SHIPPING_ALLOWED_COUNTRIES"), "US,CA,GB,NG")),
		CORSAllowedOrigins:  splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RedisURL:            k.String("REDIS_URL"),
		MongoURI:            k.String("MONGO_URI"),
		MongoDatabase:       valueOrDefault(k.String("MONGO_DATABASE"), "rootstobloom"),
		ProviderTimeout:     parseDuration(k.String("PROVIDER_TIMEOUT"), "10s"),
		WebhookReplayTTL:    parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "24h"),
		MaxBodyBytes:        parseInt64(k.String("MAX_BODY_BYTES"), 1<<20),
		RateLimitWindow:     parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:        int(parseInt64(k.String("RATE_LIMIT_MAX"), 30)),
	}

	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if cfg.TaxRate.IsNegative() {
		return nil, errors.New("TAX_RATE must not be negative")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// SuccessURL is the redirect target the provider sends the buyer to after
// payment completes. The placeholder is substituted with the session id by
// the provider.
func (c *Config) SuccessURL() string {
	return c.PublicBaseURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL is the redirect target for abandoned payments. It must stay a
// distinct route from SuccessURL.
func (c *Config) CancelURL() string {
	return c.PublicBaseURL + "/payment-cancelled"
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	return decimal.NewFromString(base)
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
