package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KURS_DB_DSN", "postgres://localhost/kurs")
	t.Setenv("KURS_DEV_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, int64(10000), cfg.Pricing.MinimumFee)
	assert.Equal(t, "IDR", cfg.Payment.Currency)
	assert.Equal(t, 5*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "https://api.xendit.co", cfg.Payment.XenditBaseURL)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RequiresDSN(t *testing.T) {
	t.Setenv("KURS_DB_DSN", "")
	t.Setenv("KURS_DEV_JWT_SECRET", "secret")
	_, err := Load()
	assert.ErrorContains(t, err, "KURS_DB_DSN")
}

func TestLoad_ProductionRequiresFirebase(t *testing.T) {
	t.Setenv("KURS_DB_DSN", "postgres://localhost/kurs")
	t.Setenv("KURS_APP_ENV", "production")
	t.Setenv("KURS_FIREBASE_PROJECT_ID", "")
	_, err := Load()
	assert.ErrorContains(t, err, "KURS_FIREBASE_PROJECT_ID")
}

func TestParseList(t *testing.T) {
	assert.Nil(t, parseList("  "))
	assert.Equal(t, []string{"a", "b"}, parseList(" a, ,b "))
}
