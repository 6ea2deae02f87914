package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "TELEGRAM_BOT_TOKEN", "TOKEN", "TELEGRAM_DEBUG", "ADMIN_ID",
	"CHANNEL_USERNAME", "CHANNEL_INVITE_URL", "DATABASE_DRIVER", "DATABASE_URL", "DATABASE_SCHEMA",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_TLS", "SESSION_BACKEND", "SESSION_TTL",
	"SUBSCRIPTION_CACHE_TTL", "BROADCAST_DELAY", "CODE_LENGTH", "PAGE_SIZE", "TIMEZONE",
	"HTTP_LISTEN_ADDR", "METRICS_NAMESPACE", "WEBHOOK_URL", "WEBHOOK_SECRET",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(42), cfg.AdminID)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "filmbot.db", cfg.DatabaseURL)
	assert.Equal(t, SessionMemory, cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.SubscriptionCacheTTL)
	assert.Equal(t, 50*time.Millisecond, cfg.BroadcastDelay)
	assert.Equal(t, 5, cfg.CodeLength)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "Asia/Tashkent", cfg.Location.String())
	assert.False(t, cfg.GateEnabled())
	assert.False(t, cfg.WebhookEnabled())
}

func TestLoad_LegacyTokenFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "legacy")
	t.Setenv("ADMIN_ID", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.TelegramToken)
}

func TestLoad_ChannelInviteDerived(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("ADMIN_ID", "1")
	t.Setenv("CHANNEL_USERNAME", "@kino_channel")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.GateEnabled())
	assert.Equal(t, "https://t.me/kino_channel", cfg.ChannelInviteURL)
}

func TestLoad_NumericChannelHasNoDerivedInvite(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("ADMIN_ID", "1")
	t.Setenv("CHANNEL_USERNAME", "-1001234567890")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ChannelInviteURL)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing token":        {"ADMIN_ID": "1"},
		"missing admin":        {"TELEGRAM_BOT_TOKEN": "t"},
		"bad admin":            {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "abc"},
		"bad driver":           {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "DATABASE_DRIVER": "mysql"},
		"redis session":        {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "SESSION_BACKEND": "redis"},
		"short code":           {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "CODE_LENGTH": "2"},
		"bad delay":            {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "BROADCAST_DELAY": "soon"},
		"zero page size":       {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "PAGE_SIZE": "0"},
		"unknown timezone":     {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "TIMEZONE": "Mars/Olympus"},
		"bad session ttl":      {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "SESSION_TTL": "-1h"},
		"bad telegram debug":   {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "TELEGRAM_DEBUG": "maybe"},
		"webhook no secret":    {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "WEBHOOK_URL": "https://bot.example.com"},
		"webhook blank secret": {"TELEGRAM_BOT_TOKEN": "t", "ADMIN_ID": "1", "WEBHOOK_URL": "https://bot.example.com", "WEBHOOK_SECRET": "  "},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
