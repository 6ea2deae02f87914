package convo

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (e *Engine) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	e.send(msg)
}

func (e *Engine) replyWithMarkup(chatID int64, text string, markup any) bool {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	return e.send(msg)
}

func (e *Engine) sendVideo(chatID int64, fileID, description string) bool {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(fileID))
	video.Caption = caption(description)
	return e.send(video)
}

func (e *Engine) send(c tgbotapi.Chattable) bool {
	if _, err := e.sender.Send(c); err != nil {
		e.metrics.IncError("telegram_send")
		e.logger.Error("failed sending message", "error", err)
		return false
	}
	return true
}

// edit replaces the text and keyboard of a bot message. Edits that change
// nothing are not errors.
func (e *Engine) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	var cfg tgbotapi.EditMessageTextConfig
	if markup != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	if _, err := e.sender.Request(cfg); err != nil {
		if isNotModified(err) {
			e.logger.Debug("edit left message unchanged", "chat_id", chatID, "message_id", messageID)
			return
		}
		e.metrics.IncError("telegram_edit")
		e.logger.Error("failed editing message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

// render sends a new message when messageID is zero and edits it otherwise.
func (e *Engine) render(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		e.edit(chatID, messageID, text, markup)
		return
	}
	if markup != nil {
		e.replyWithMarkup(chatID, text, *markup)
		return
	}
	e.reply(chatID, text)
}

func (e *Engine) answer(callbackID, text string) {
	e.request(tgbotapi.NewCallback(callbackID, text))
}

func (e *Engine) answerAlert(callbackID, text string) {
	e.request(tgbotapi.NewCallbackWithAlert(callbackID, text))
}

func (e *Engine) request(c tgbotapi.Chattable) {
	if _, err := e.sender.Request(c); err != nil {
		e.metrics.IncError("telegram_request")
		e.logger.Warn("telegram request failed", "error", err)
	}
}

func (e *Engine) sendJoinPrompt(chatID int64) {
	e.replyWithMarkup(chatID, textJoinChannel, joinKeyboard(e.gate.InviteURL()))
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

func parsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
