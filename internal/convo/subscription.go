package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kino-bot/internal/metrics"
)

// MemberChecker looks up channel membership on the platform.
type MemberChecker interface {
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Gate decides whether a user has joined the required channel.
type Gate struct {
	checker   MemberChecker
	channel   string
	inviteURL string
	cache     JSONCache
	ttl       time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewGate builds a subscription gate for channel. cache may be nil. A zero
// ttl disables caching.
func NewGate(checker MemberChecker, channel, inviteURL string, cache JSONCache, ttl time.Duration, metricRegistry *metrics.Metrics, logger *slog.Logger) *Gate {
	return &Gate{
		checker:   checker,
		channel:   strings.TrimSpace(channel),
		inviteURL: inviteURL,
		cache:     cache,
		ttl:       ttl,
		metrics:   metricRegistry,
		logger:    logger.With("component", "subscription_gate"),
	}
}

// Enabled reports whether a channel is configured.
func (g *Gate) Enabled() bool {
	return g != nil && g.channel != ""
}

// InviteURL is the link offered on the join prompt. It may be empty.
func (g *Gate) InviteURL() string {
	if g == nil {
		return ""
	}
	return g.inviteURL
}

// IsSubscribed reports channel membership. Any lookup error counts as not subscribed.
func (g *Gate) IsSubscribed(ctx context.Context, userID int64) bool {
	if !g.Enabled() {
		return true
	}
	if g.cached(ctx, userID) {
		return true
	}

	member, err := g.checker.GetChatMember(g.memberConfig(userID))
	if err != nil {
		g.metrics.IncError("subscription_check")
		g.logger.Warn("membership lookup failed", "user_id", userID, "channel", g.channel, "error", err)
		return false
	}
	if !isMember(member) {
		return false
	}

	if g.cache != nil && g.ttl > 0 {
		if err := g.cache.SetJSON(ctx, memberKey(userID), true, g.ttl); err != nil {
			g.logger.Warn("failed caching membership", "user_id", userID, "error", err)
		}
	}
	return true
}

func (g *Gate) cached(ctx context.Context, userID int64) bool {
	if g.cache == nil || g.ttl <= 0 {
		return false
	}
	var ok bool
	found, err := g.cache.GetJSON(ctx, memberKey(userID), &ok)
	if err != nil {
		g.logger.Debug("membership cache read failed", "user_id", userID, "error", err)
		return false
	}
	return found && ok
}

func (g *Gate) memberConfig(userID int64) tgbotapi.GetChatMemberConfig {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID},
	}
	if id, err := strconv.ParseInt(g.channel, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = "@" + strings.TrimPrefix(g.channel, "@")
	}
	return cfg
}

func isMember(m tgbotapi.ChatMember) bool {
	switch m.Status {
	case "creator", "administrator", "member":
		return true
	case "restricted":
		return m.IsMember
	default:
		return false
	}
}

func memberKey(userID int64) string {
	return fmt.Sprintf("member:%d", userID)
}
