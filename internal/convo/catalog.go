package convo

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kino-bot/internal/codegen"
	"kino-bot/internal/recommend"
	"kino-bot/internal/repo"
)

func (e *Engine) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	_, err := e.repo.GetUser(ctx, userID)
	switch {
	case err == nil:
		e.reply(chatID, textSendCode)
		return
	case errors.Is(err, repo.ErrNotFound):
	default:
		e.metrics.IncError("repo")
		e.logger.Error("failed loading user", "user_id", userID, "error", err)
	}
	e.replyWithMarkup(chatID, welcomeText(fullName(msg.From)), contactKeyboard())
}

func (e *Engine) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	contact := msg.Contact

	if contact.UserID != userID {
		e.logger.Warn("foreign contact rejected", "user_id", userID, "contact_user_id", contact.UserID)
		e.replyWithMarkup(chatID, textShareOwnContact, contactKeyboard())
		return
	}

	profile := repo.UserProfile{
		ID:          userID,
		FullName:    fullName(msg.From),
		Username:    msg.From.UserName,
		PhoneNumber: contact.PhoneNumber,
	}
	if _, err := e.repo.UpsertUser(ctx, profile); err != nil {
		e.metrics.IncError("repo")
		e.logger.Error("failed registering user", "user_id", userID, "error", err)
		e.reply(chatID, textRegistrationFailed)
		return
	}
	e.logger.Info("user registered", "user_id", userID)
	e.replyWithMarkup(chatID, textRegistered, tgbotapi.NewRemoveKeyboard(true))
}

func (e *Engine) handleHelp(chatID, userID int64) {
	text := textHelp
	if e.isAdmin(userID) {
		text += textAdminHelp
	}
	e.reply(chatID, text)
}

func (e *Engine) handleCodeLookup(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	code := strings.TrimSpace(msg.Text)
	if !codegen.Valid(code) {
		e.metrics.IncLookup("invalid")
		e.reply(chatID, textOnlyCode)
		return
	}

	movie, err := e.repo.GetMovieByCode(ctx, code)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		e.metrics.IncLookup("not_found")
		e.reply(chatID, textMovieNotFound)
		return
	case err != nil:
		e.metrics.IncLookup("error")
		e.metrics.IncError("repo")
		e.logger.Error("movie lookup failed", "code", code, "error", err)
		e.reply(chatID, textLookupFailed)
		return
	}

	e.metrics.IncLookup("found")
	e.sendVideo(chatID, movie.FileID, movie.Description)
}

func (e *Engine) handleAll(ctx context.Context, chatID int64) {
	movies, err := e.repo.ListMovies(ctx)
	if err != nil {
		e.metrics.IncError("repo")
		e.logger.Error("failed listing movies", "error", err)
		movies = nil
	}
	for _, chunk := range splitMessage(recommend.FormatList("🎬 All movies", movies), maxMessageLen) {
		e.reply(chatID, chunk)
	}
}

// sendPage renders page of the catalog. Out-of-range pages are clamped.
func (e *Engine) sendPage(ctx context.Context, chatID int64, messageID, page int) {
	total, err := e.repo.CountMovies(ctx)
	if err != nil {
		e.metrics.IncError("repo")
		e.logger.Error("failed counting movies", "error", err)
		e.render(chatID, messageID, recommend.NoMovies(), nil)
		return
	}
	size := e.cfg.PageSize
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	page = min(max(page, 1), totalPages)

	movies, err := e.repo.ListMoviesPage(ctx, page, size)
	if err != nil {
		e.metrics.IncError("repo")
		e.logger.Error("failed listing movie page", "page", page, "error", err)
		movies = nil
	}
	e.render(chatID, messageID, recommend.FormatPage(movies, page, totalPages, size), pagerKeyboard(page, totalPages))
}

func (e *Engine) sendPicks(ctx context.Context, chatID int64, messageID int, view string) {
	var text string
	switch view {
	case cbPickToday:
		text = recommend.FormatList("📅 Today's picks", e.picks.Today(ctx, recommend.DefaultTodayCount))
	case cbPickWeekly:
		text = recommend.FormatList("🗓 This week's picks", e.picks.Weekly(ctx, recommend.DefaultWeeklyCount))
	default:
		text = recommend.FormatList("🎲 Random movies", e.picks.Random(ctx, recommend.DefaultRandomCount))
	}
	kb := picksKeyboard()
	e.render(chatID, messageID, text, &kb)
}

func (e *Engine) handleRecommend(ctx context.Context, chatID, userID int64) {
	movie, ok := e.picks.Recommend(ctx, userID)
	if !ok {
		e.reply(chatID, textNoRecommend)
		return
	}
	e.reply(chatID, recommend.FormatRecommendation(movie))
}

func (e *Engine) recheckSubscription(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if !e.subscribed(ctx, cq.From.ID) {
		e.answerAlert(cq.ID, textNotSubscribed)
		return
	}
	e.answer(cq.ID, "")
	e.edit(cq.Message.Chat.ID, cq.Message.MessageID, textSubscribed, nil)
}

func fullName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.UserName
	}
	return name
}
