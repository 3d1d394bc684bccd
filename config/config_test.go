package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTO_ASSIGN_INTERVAL", "")
	t.Setenv("REMINDER_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.True(t, cfg.JWT.DefaultSecret())
	assert.Equal(t, time.Minute, cfg.Scheduler.AutoAssignInterval)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.AutoAssignDelay)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.ReminderInterval)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.ReminderWindow)
	assert.Equal(t, 7, cfg.Invoice.PaymentDays)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AUTO_ASSIGN_INTERVAL", "30")
	t.Setenv("REMINDER_INTERVAL", "1h")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.False(t, cfg.JWT.DefaultSecret())
	assert.Equal(t, 30*time.Second, cfg.Scheduler.AutoAssignInterval)
	assert.Equal(t, time.Hour, cfg.Scheduler.ReminderInterval)
	assert.True(t, cfg.Delivery.EmailEnabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
}

func TestGetEnvDurationRejectsGarbage(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	assert.Equal(t, 5*time.Second, getEnvDuration("SOME_DURATION", 5*time.Second))
}
