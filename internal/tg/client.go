package tg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kino-bot/internal/metrics"
)

// WebhookPathPrefix is where the HTTP server mounts the Telegram webhook.
const WebhookPathPrefix = "/webhook/telegram/"

// Config holds configuration to initialise the Telegram client.
type Config struct {
	Token         string
	Debug         bool
	PollTimeout   int
	WebhookURL    string
	WebhookSecret string
	Metrics       *metrics.Metrics
}

// UpdateProcessor handles inbound Telegram updates.
type UpdateProcessor interface {
	ProcessUpdate(ctx context.Context, update tgbotapi.Update)
}

// Client wraps the Bot API client and associated dependencies.
type Client struct {
	api       *tgbotapi.BotAPI
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	processor UpdateProcessor
	inflight  sync.WaitGroup
	stopOnce  sync.Once
}

// New authenticates against the Bot API with the configured token.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("bot token is required")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("init bot api: %w", err)
	}
	api.Debug = cfg.Debug

	c := &Client{
		api:     api,
		cfg:     cfg,
		logger:  logger.With("component", "tg"),
		metrics: cfg.Metrics,
	}
	c.logger.Info("authorised on telegram", "bot", api.Self.UserName)
	return c, nil
}

// SetUpdateProcessor registers the update handler.
func (c *Client) SetUpdateProcessor(processor UpdateProcessor) {
	c.processor = processor
}

// Start receives updates until ctx ends. In webhook mode it registers the
// webhook and waits. Otherwise it long-polls getUpdates.
func (c *Client) Start(ctx context.Context) error {
	if c.cfg.WebhookURL != "" {
		return c.startWebhook(ctx)
	}
	return c.startPolling(ctx)
}

func (c *Client) startPolling(ctx context.Context) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.cfg.PollTimeout
	updates := c.api.GetUpdatesChan(u)
	c.logger.Info("long polling started", "timeout", u.Timeout)

	for {
		select {
		case <-ctx.Done():
			c.stopReceiving()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.dispatch(ctx, update)
		}
	}
}

func (c *Client) startWebhook(ctx context.Context) error {
	wh, err := tgbotapi.NewWebhook(c.cfg.WebhookURL + WebhookPathPrefix + c.cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.logger.Info("webhook registered", "base_url", c.cfg.WebhookURL)
	<-ctx.Done()
	return nil
}

// WebhookHandler decodes updates posted by Telegram and dispatches them under ctx.
func (c *Client) WebhookHandler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		update, err := c.api.HandleUpdate(r)
		if err != nil {
			c.metrics.IncError("tg_webhook")
			c.logger.Warn("invalid webhook payload", "error", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		c.dispatch(ctx, *update)
		w.WriteHeader(http.StatusOK)
	})
}

// Close stops polling and waits for in-flight updates.
func (c *Client) Close() {
	c.stopReceiving()
	c.inflight.Wait()
}

// stopReceiving closes the SDK shutdown channel, which must happen only once.
func (c *Client) stopReceiving() {
	c.stopOnce.Do(c.api.StopReceivingUpdates)
}

func (c *Client) dispatch(ctx context.Context, update tgbotapi.Update) {
	if c.metrics != nil {
		c.metrics.TGIncomingUpdates.WithLabelValues(updateType(update)).Inc()
	}
	if c.processor == nil {
		return
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.metrics.IncError("tg_dispatch")
				c.logger.Error("update handler panicked", "update_id", update.UpdateID, "panic", rec)
			}
		}()
		c.processor.ProcessUpdate(ctx, update)
	}()
}

// Send delivers a sendable config such as a message, video or edit.
func (c *Client) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	sent, err := c.api.Send(msg)
	if err != nil {
		return sent, fmt.Errorf("send %s: %w", kindOf(msg), err)
	}
	if c.metrics != nil {
		c.metrics.TGOutgoingMessages.WithLabelValues(kindOf(msg)).Inc()
	}
	return sent, nil
}

// Request performs a Bot API call that does not return a message, such as answering a callback.
func (c *Client) Request(req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	resp, err := c.api.Request(req)
	if err != nil {
		return resp, fmt.Errorf("request %s: %w", kindOf(req), err)
	}
	if c.metrics != nil {
		c.metrics.TGOutgoingMessages.WithLabelValues(kindOf(req)).Inc()
	}
	return resp, nil
}

// GetChatMember looks up a user's membership in a chat.
func (c *Client) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return c.api.GetChatMember(cfg)
}

// DeliverText sends an HTML text message. It backs broadcast delivery.
func (c *Client) DeliverText(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := c.Send(msg)
	return err
}

func updateType(u tgbotapi.Update) string {
	switch {
	case u.CallbackQuery != nil:
		return "callback"
	case u.Message == nil:
		return "other"
	case u.Message.IsCommand():
		return "command"
	case u.Message.Contact != nil:
		return "contact"
	case u.Message.Video != nil:
		return "video"
	case u.Message.Text != "":
		return "text"
	default:
		return "unsupported"
	}
}

func kindOf(c tgbotapi.Chattable) string {
	switch c.(type) {
	case tgbotapi.MessageConfig:
		return "text"
	case tgbotapi.VideoConfig:
		return "video"
	case tgbotapi.EditMessageTextConfig:
		return "edit"
	case tgbotapi.CallbackConfig:
		return "callback_answer"
	default:
		return "other"
	}
}
