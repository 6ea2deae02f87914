package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kino-bot/internal/broadcast"
	"kino-bot/internal/cache"
	"kino-bot/internal/codegen"
	"kino-bot/internal/config"
	"kino-bot/internal/convo"
	"kino-bot/internal/httpserver"
	"kino-bot/internal/logging"
	"kino-bot/internal/metrics"
	"kino-bot/internal/recommend"
	"kino-bot/internal/repo"
	"kino-bot/internal/tg"
	"kino-bot/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting kino-bot", "env", cfg.AppEnv, "db_driver", cfg.DatabaseDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	var redisClient *cache.Redis
	if cfg.RedisAddr != "" {
		redisClient = cache.New(cache.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			UseTLS:    cfg.RedisTLS,
			KeyPrefix: "kinobot",
		}, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed closing redis", "error", err)
			}
		}()
		if err := redisClient.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", "error", err)
		}
	}

	var sessions convo.SessionStore = convo.NewMemoryStore()
	if cfg.SessionBackend == config.SessionRedis {
		sessions = convo.NewRedisStore(redisClient, cfg.SessionTTL)
	}

	tgClient, err := tg.New(tg.Config{
		Token:         cfg.TelegramToken,
		Debug:         cfg.TelegramDebug,
		WebhookURL:    cfg.WebhookURL,
		WebhookSecret: cfg.WebhookSecret,
		Metrics:       metricRegistry,
	}, logger)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}

	var memberCache convo.JSONCache
	if redisClient != nil {
		memberCache = redisClient
	}
	var gate *convo.Gate
	if cfg.GateEnabled() {
		gate = convo.NewGate(tgClient, cfg.ChannelUsername, cfg.ChannelInviteURL, memberCache, cfg.SubscriptionCacheTTL, metricRegistry, logger)
		logger.Info("subscription gate enabled", "channel", cfg.ChannelUsername)
	}

	picks := recommend.New(repository, cfg.Location, logger)
	broadcaster := broadcast.New(repository, tgClient, cfg.BroadcastDelay, metricRegistry, logger)
	codes := codegen.New(cfg.CodeLength)

	convoEngine := convo.New(repository, picks, tgClient, sessions, gate, broadcaster, codes, metricRegistry, logger, convo.EngineConfig{
		AdminID:  cfg.AdminID,
		PageSize: cfg.PageSize,
	})
	tgClient.SetUpdateProcessor(convoEngine)

	handlers := httpserver.Handlers{}
	if cfg.WebhookEnabled() {
		handlers.TelegramWebhook = tgClient.WebhookHandler(ctx)
		handlers.WebhookSecret = cfg.WebhookSecret
	}
	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, repository, handlers)

	tgCtx, tgCancel := context.WithCancel(ctx)
	defer tgCancel()
	go func() {
		if err := tgClient.Start(tgCtx); err != nil {
			logger.Error("telegram client stopped", "error", err)
			stop()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	tgCancel()
	tgClient.Close()
	convoEngine.Wait()
	logger.Info("shutdown complete")

	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repo.Repository, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return repo.NewPostgres(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
	default:
		return repo.NewSQLite(ctx, cfg.DatabaseURL, logger)
	}
}
