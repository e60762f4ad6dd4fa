package config_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "usd", cfg.DefaultCurrency)
	require.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.05")))
	require.Equal(t, []string{"US", "CA", "GB", "NG"}, cfg.AllowedCountries)
	require.Equal(t, "http://localhost:5173/payment-success?session_id={CHECKOUT_SESSION_ID}", cfg.SuccessURL())
	require.Equal(t, "http://localhost:5173/payment-cancelled", cfg.CancelURL())
	require.NotEqual(t, cfg.SuccessURL(), cfg.CancelURL())
}

func TestLoadRequiresProviderSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("STRIPE_SECRET_KEY", "")

	_, err := config.Load()
	require.ErrorContains(t, err, "STRIPE_SECRET_KEY")

	setRequired(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err = config.Load()
	require.ErrorContains(t, err, "STRIPE_WEBHOOK_SECRET")
}

func TestLoadParsesOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TAX_RATE", "0.075")
	t.Setenv("PUBLIC_BASE_URL", "https://rootstobloom.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://rootstobloom.com, https://www.rootstobloom.com")
	t.Setenv("DEFAULT_CURRENCY", "EUR")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.075")))
	require.Equal(t, "https://rootstobloom.com", cfg.PublicBaseURL)
	require.Equal(t, []string{"https://rootstobloom.com", "https://www.rootstobloom.com"}, cfg.CORSAllowedOrigins)
	require.Equal(t, "eur", cfg.DefaultCurrency)
}

func TestLoadRejectsNegativeTaxRate(t *testing.T) {
	setRequired(t)
	t.Setenv("TAX_RATE", "-0.05")

	_, err := config.Load()
	require.ErrorContains(t, err, "TAX_RATE")
}
