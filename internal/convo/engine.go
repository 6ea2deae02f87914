package convo

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kino-bot/internal/broadcast"
	"kino-bot/internal/metrics"
	"kino-bot/internal/recommend"
	"kino-bot/internal/repo"
)

// Sender delivers outgoing messages to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BroadcastRunner fans a text out to every registered user.
type BroadcastRunner interface {
	Run(ctx context.Context, text string) (broadcast.Result, error)
}

// CodeGenerator produces candidate movie codes.
type CodeGenerator interface {
	Next() string
}

// EngineConfig contains conversation-level settings.
type EngineConfig struct {
	AdminID  int64
	PageSize int
}

// Engine routes Telegram updates to handlers.
type Engine struct {
	repo        repo.Repository
	picks       *recommend.Service
	sender      Sender
	sessions    SessionStore
	gate        *Gate
	broadcaster BroadcastRunner
	codes       CodeGenerator
	metrics     *metrics.Metrics
	logger      *slog.Logger
	cfg         EngineConfig

	locks      *keyedMutex
	background sync.WaitGroup
}

// New constructs a conversation engine. gate may be nil to disable the
// subscription requirement.
func New(repository repo.Repository, picks *recommend.Service, sender Sender, sessions SessionStore, gate *Gate, broadcaster BroadcastRunner, codes CodeGenerator, metricRegistry *metrics.Metrics, logger *slog.Logger, cfg EngineConfig) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = repo.DefaultPageSize
	}
	if sessions == nil {
		sessions = NewMemoryStore()
	}
	return &Engine{
		repo:        repository,
		picks:       picks,
		sender:      sender,
		sessions:    sessions,
		gate:        gate,
		broadcaster: broadcaster,
		codes:       codes,
		metrics:     metricRegistry,
		logger:      logger.With("component", "convo"),
		cfg:         cfg,
		locks:       newKeyedMutex(),
	}
}

// Wait blocks until background work such as running broadcasts has finished.
func (e *Engine) Wait() {
	e.background.Wait()
}

// ProcessUpdate handles a single update. Updates from the same user are
// handled one at a time.
func (e *Engine) ProcessUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return
		}
		unlock := e.locks.Lock(msg.From.ID)
		defer unlock()
		e.handleMessage(ctx, msg)
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil {
			return
		}
		unlock := e.locks.Lock(cq.From.ID)
		defer unlock()
		e.handleCallback(ctx, cq)
	}
}

func (e *Engine) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	logger := e.logger.With("user_id", msg.From.ID)

	if msg.Contact != nil {
		e.handleContact(ctx, msg)
		return
	}
	if msg.IsCommand() {
		e.handleCommand(ctx, msg)
		return
	}

	sess := e.session(ctx, msg.From.ID)
	if !sess.Idle() {
		e.handleStateInput(ctx, msg, sess)
		return
	}

	switch {
	case msg.Video != nil:
		logger.Debug("video outside upload flow")
		if e.isAdmin(msg.From.ID) {
			e.reply(msg.Chat.ID, textVideoOutsideAdmin)
		} else {
			e.reply(msg.Chat.ID, textVideoOutsideFlow)
		}
	case msg.Text != "":
		if !e.allow(ctx, msg.From.ID, msg.Chat.ID) {
			return
		}
		e.handleCodeLookup(ctx, msg)
	default:
		logger.Debug("ignoring unsupported message")
	}
}

func (e *Engine) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	cmd := strings.ToLower(msg.Command())

	switch cmd {
	case "start":
		e.handleStart(ctx, msg)
		return
	case "help":
		e.handleHelp(chatID, userID)
		return
	case "cancel":
		e.handleCancel(ctx, chatID, userID)
		return
	case "admin", "broadcast", "stats":
		if !e.isAdmin(userID) {
			e.logger.Warn("admin command from non-admin", "user_id", userID, "command", cmd)
			return
		}
		switch cmd {
		case "admin":
			e.beginUpload(ctx, chatID, userID)
		case "broadcast":
			e.beginBroadcast(ctx, chatID, userID)
		case "stats":
			e.handleStats(ctx, chatID)
		}
		return
	}

	switch cmd {
	case "all", "movies", "random", "today", "weekly", "genres", "recommend":
	default:
		e.handleHelp(chatID, userID)
		return
	}
	if !e.allow(ctx, userID, chatID) {
		return
	}
	switch cmd {
	case "all":
		e.handleAll(ctx, chatID)
	case "movies":
		e.sendPage(ctx, chatID, 0, 1)
	case "random":
		e.sendPicks(ctx, chatID, 0, cbPickRandom)
	case "today":
		e.sendPicks(ctx, chatID, 0, cbPickToday)
	case "weekly":
		e.sendPicks(ctx, chatID, 0, cbPickWeekly)
	case "genres":
		e.reply(chatID, recommend.FormatGenres(e.picks.ByGenre(ctx)))
	case "recommend":
		e.handleRecommend(ctx, chatID, userID)
	}
}

func (e *Engine) handleStateInput(ctx context.Context, msg *tgbotapi.Message, sess Session) {
	switch sess.State {
	case StateAwaitingVideo:
		e.receiveVideo(ctx, msg, sess)
	case StateAwaitingDescription:
		e.receiveDescription(ctx, msg, sess)
	case StateAwaitingBroadcastText:
		e.receiveBroadcastText(ctx, msg, sess)
	case StateAwaitingBroadcastConfirm:
		e.reply(msg.Chat.ID, textUseBroadcastButtons)
	default:
		e.logger.Warn("unknown session state, resetting", "user_id", msg.From.ID, "state", sess.State)
		e.clearSession(ctx, msg.From.ID)
	}
}

func (e *Engine) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		e.answer(cq.ID, "")
		return
	}
	userID := cq.From.ID
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	data := cq.Data

	switch data {
	case cbBroadcastConfirm:
		e.confirmBroadcast(ctx, cq)
		return
	case cbBroadcastCancel:
		e.cancelBroadcast(ctx, cq)
		return
	case cbSubCheck:
		e.recheckSubscription(ctx, cq)
		return
	}

	if !strings.HasPrefix(data, cbPagePrefix) && data != cbPickRandom && data != cbPickToday && data != cbPickWeekly {
		e.logger.Debug("unknown callback", "user_id", userID, "data", data)
		e.answer(cq.ID, "")
		return
	}
	if !e.allowCallback(ctx, cq) {
		return
	}
	e.answer(cq.ID, "")

	if strings.HasPrefix(data, cbPagePrefix) {
		e.sendPage(ctx, chatID, messageID, parsePage(strings.TrimPrefix(data, cbPagePrefix)))
		return
	}
	e.sendPicks(ctx, chatID, messageID, data)
}

func (e *Engine) isAdmin(userID int64) bool {
	return e.cfg.AdminID != 0 && userID == e.cfg.AdminID
}

// allow applies the subscription gate and sends the join prompt on failure.
func (e *Engine) allow(ctx context.Context, userID, chatID int64) bool {
	if e.subscribed(ctx, userID) {
		return true
	}
	e.sendJoinPrompt(chatID)
	return false
}

func (e *Engine) allowCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) bool {
	if e.subscribed(ctx, cq.From.ID) {
		return true
	}
	e.answerAlert(cq.ID, textNotSubscribed)
	e.sendJoinPrompt(cq.Message.Chat.ID)
	return false
}

func (e *Engine) subscribed(ctx context.Context, userID int64) bool {
	if e.isAdmin(userID) || !e.gate.Enabled() {
		return true
	}
	return e.gate.IsSubscribed(ctx, userID)
}

func (e *Engine) session(ctx context.Context, userID int64) Session {
	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		e.metrics.IncError("session")
		e.logger.Error("failed loading session", "user_id", userID, "error", err)
		return Session{}
	}
	return sess
}

func (e *Engine) saveSession(ctx context.Context, userID int64, sess Session) bool {
	if err := e.sessions.Set(ctx, userID, sess); err != nil {
		e.metrics.IncError("session")
		e.logger.Error("failed saving session", "user_id", userID, "state", sess.State, "error", err)
		return false
	}
	return true
}

func (e *Engine) clearSession(ctx context.Context, userID int64) {
	if err := e.sessions.Clear(ctx, userID); err != nil {
		e.metrics.IncError("session")
		e.logger.Error("failed clearing session", "user_id", userID, "error", err)
	}
}
