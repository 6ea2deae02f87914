package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds runtime settings sourced from the environment.
type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string

	TelegramToken string
	TelegramDebug bool
	AdminID       int64

	ChannelUsername  string
	ChannelInviteURL string

	DatabaseDriver string
	DatabaseURL    string
	DatabaseSchema string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	SessionBackend       string
	SessionTTL           time.Duration
	SubscriptionCacheTTL time.Duration

	BroadcastDelay time.Duration
	CodeLength     int
	PageSize       int
	Location       *time.Location

	HTTPListenAddr   string
	MetricsNamespace string
	WebhookURL       string
	WebhookSecret    string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Load reads configuration from environment variables and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", os.Getenv("TOKEN")),
		ChannelUsername:  strings.TrimSpace(os.Getenv("CHANNEL_USERNAME")),
		ChannelInviteURL: strings.TrimSpace(os.Getenv("CHANNEL_INVITE_URL")),
		DatabaseDriver:   strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
		DatabaseURL:      getEnv("DATABASE_URL", "filmbot.db"),
		DatabaseSchema:   os.Getenv("DATABASE_SCHEMA"),
		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		SessionBackend:   strings.ToLower(getEnv("SESSION_BACKEND", SessionMemory)),
		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "kinobot"),
		WebhookURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("WEBHOOK_URL")), "/"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
	}

	var err error
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.AdminID, err = parseInt64("ADMIN_ID", ""); err != nil {
		return nil, err
	}
	if cfg.AdminID == 0 {
		return nil, fmt.Errorf("ADMIN_ID is required")
	}
	if cfg.TelegramDebug, err = parseBool("TELEGRAM_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisTLS, err = parseBool("REDIS_TLS", false); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = parseDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SubscriptionCacheTTL, err = parseDuration("SUBSCRIPTION_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BroadcastDelay, err = parseDuration("BROADCAST_DELAY", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.CodeLength, err = parseInt("CODE_LENGTH", 5); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = parseInt("PAGE_SIZE", 10); err != nil {
		return nil, err
	}

	tz := getEnv("TIMEZONE", "Asia/Tashkent")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	switch cfg.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	switch cfg.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("SESSION_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return nil, fmt.Errorf("unsupported SESSION_BACKEND %q", cfg.SessionBackend)
	}
	if cfg.CodeLength < 3 || cfg.CodeLength > 12 {
		return nil, fmt.Errorf("CODE_LENGTH must be between 3 and 12, got %d", cfg.CodeLength)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}
	if cfg.WebhookURL != "" && strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	if cfg.ChannelInviteURL == "" {
		cfg.ChannelInviteURL = inviteURL(cfg.ChannelUsername)
	}

	return cfg, nil
}

// GateEnabled reports whether a required channel is configured.
func (c *Config) GateEnabled() bool {
	return c.ChannelUsername != ""
}

// WebhookEnabled reports whether updates arrive over the webhook instead of long polling.
func (c *Config) WebhookEnabled() bool {
	return c.WebhookURL != ""
}

func inviteURL(channel string) string {
	name := strings.TrimPrefix(channel, "@")
	if name == "" {
		return ""
	}
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		// numeric chat ids have no public link
		return ""
	}
	return "https://t.me/" + name
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseInt64(key, fallback string) (int64, error) {
	raw := getEnv(key, fallback)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return v, nil
}
