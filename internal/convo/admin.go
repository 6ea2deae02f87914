package convo

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kino-bot/internal/repo"
)

// maxCodeAttempts bounds how many fresh codes an upload tries before giving up.
const maxCodeAttempts = 5

func (e *Engine) beginUpload(ctx context.Context, chatID, userID int64) {
	if !e.saveSession(ctx, userID, Session{State: StateAwaitingVideo}) {
		return
	}
	e.reply(chatID, textAwaitVideo)
}

func (e *Engine) receiveVideo(ctx context.Context, msg *tgbotapi.Message, sess Session) {
	if msg.Video == nil {
		e.reply(msg.Chat.ID, textNeedVideo)
		return
	}
	sess.State = StateAwaitingDescription
	sess.FileID = msg.Video.FileID
	if !e.saveSession(ctx, msg.From.ID, sess) {
		return
	}
	e.reply(msg.Chat.ID, textAwaitDescription)
}

func (e *Engine) receiveDescription(ctx context.Context, msg *tgbotapi.Message, sess Session) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	raw := msg.Text
	if strings.TrimSpace(raw) == "" {
		e.reply(chatID, textNeedDescription)
		return
	}

	var stored *repo.Movie
	for attempt := 1; attempt <= maxCodeAttempts && stored == nil; attempt++ {
		code := e.codes.Next()
		movie, err := e.repo.InsertMovie(ctx, repo.Movie{
			FileID:      sess.FileID,
			Description: InjectCode(raw, code),
			Code:        code,
		})
		switch {
		case errors.Is(err, repo.ErrDuplicateCode):
			e.logger.Debug("generated code already taken", "code", code, "attempt", attempt)
		case err != nil:
			e.metrics.IncUpload("error")
			e.metrics.IncError("repo")
			e.logger.Error("failed storing movie", "error", err)
			e.reply(chatID, textUploadFailed)
			return
		default:
			stored = movie
		}
	}
	if stored == nil {
		e.metrics.IncUpload("duplicate")
		e.logger.Warn("no free movie code after retries", "attempts", maxCodeAttempts)
		e.reply(chatID, textCodeExhausted)
		return
	}

	e.metrics.IncUpload("stored")
	e.logger.Info("movie stored", "code", stored.Code, "movie_id", stored.ID)
	e.clearSession(ctx, userID)
	e.sendVideo(chatID, stored.FileID, stored.Description)
	e.reply(chatID, uploadedText(stored.Code))
}

func (e *Engine) beginBroadcast(ctx context.Context, chatID, userID int64) {
	if !e.saveSession(ctx, userID, Session{State: StateAwaitingBroadcastText}) {
		return
	}
	e.reply(chatID, textAwaitBroadcast)
}

func (e *Engine) receiveBroadcastText(ctx context.Context, msg *tgbotapi.Message, sess Session) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		e.reply(msg.Chat.ID, textNeedBroadcastText)
		return
	}
	// A preview Telegram rejects would fail for every recipient too.
	if !e.replyWithMarkup(msg.Chat.ID, broadcastPreviewText(text), broadcastConfirmKeyboard()) {
		e.reply(msg.Chat.ID, textBroadcastRejected)
		return
	}
	sess.State = StateAwaitingBroadcastConfirm
	sess.Text = text
	e.saveSession(ctx, msg.From.ID, sess)
}

func (e *Engine) confirmBroadcast(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	if !e.isAdmin(userID) {
		e.logger.Warn("broadcast confirm from non-admin", "user_id", userID)
		e.answer(cq.ID, "")
		return
	}

	sess := e.session(ctx, userID)
	if sess.State != StateAwaitingBroadcastConfirm || sess.Text == "" {
		e.answer(cq.ID, textBroadcastNothing)
		e.edit(chatID, messageID, textBroadcastNothing, nil)
		return
	}
	text := sess.Text
	e.clearSession(ctx, userID)
	e.answer(cq.ID, "")
	e.edit(chatID, messageID, textBroadcastStarted, nil)

	e.background.Add(1)
	go func() {
		defer e.background.Done()
		res, err := e.broadcaster.Run(ctx, text)
		if err != nil {
			e.metrics.IncError("broadcast")
			e.logger.Error("broadcast failed", "error", err)
			e.reply(chatID, textBroadcastFailedStart)
			return
		}
		e.reply(chatID, broadcastReportText(res))
	}()
}

func (e *Engine) cancelBroadcast(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	if !e.isAdmin(userID) {
		e.answer(cq.ID, "")
		return
	}
	if sess := e.session(ctx, userID); sess.State == StateAwaitingBroadcastConfirm || sess.State == StateAwaitingBroadcastText {
		e.clearSession(ctx, userID)
	}
	e.answer(cq.ID, "")
	e.edit(cq.Message.Chat.ID, cq.Message.MessageID, textBroadcastCancelled, nil)
}

func (e *Engine) handleCancel(ctx context.Context, chatID, userID int64) {
	if e.session(ctx, userID).Idle() {
		e.reply(chatID, textNothingCancel)
		return
	}
	e.clearSession(ctx, userID)
	e.reply(chatID, textCancelled)
}

func (e *Engine) handleStats(ctx context.Context, chatID int64) {
	users, err := e.repo.CountUsers(ctx)
	if err != nil {
		e.metrics.IncError("repo")
		e.logger.Error("failed counting users", "error", err)
		e.reply(chatID, textStatsFailed)
		return
	}
	movies, err := e.repo.CountMovies(ctx)
	if err != nil {
		e.metrics.IncError("repo")
		e.logger.Error("failed counting movies", "error", err)
		e.reply(chatID, textStatsFailed)
		return
	}
	e.reply(chatID, statsText(users, movies))
}
