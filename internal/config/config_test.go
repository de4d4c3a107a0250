package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "Tally", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, 3, cfg.Notifications.LeadDays)
	assert.Equal(t, 15*time.Minute, cfg.Lock.Timeout)
	assert.True(t, cfg.Audit.Tolerance.IsZero())
	assert.False(t, cfg.LockEnabled())
	assert.Equal(t, "postgres://postgres:@localhost:5432/tally?sslmode=disable", cfg.ConnectionString())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_NAME", "ledger")
	t.Setenv("AUDIT_TOLERANCE", "0.01")
	t.Setenv("PIN_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("NOTIFICATIONS_ENABLED", "true")
	t.Setenv("NOTIFICATION_LEAD_DAYS", "7")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "ledger", cfg.DB.Name)
	assert.True(t, cfg.Audit.Tolerance.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, cfg.LockEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, 7, cfg.Notifications.LeadDays)
}

func TestLoad_PINWithoutSecret(t *testing.T) {
	t.Setenv("PIN_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	_, err := config.Load()
	assert.Error(t, err)
}
