package convo

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback payloads carried by inline buttons.
const (
	cbBroadcastConfirm = "bc:confirm"
	cbBroadcastCancel  = "bc:cancel"
	cbPagePrefix       = "page:"
	cbPickRandom       = "pick:random"
	cbPickToday        = "pick:today"
	cbPickWeekly       = "pick:weekly"
	cbSubCheck         = "sub:check"
)

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("📱 Share phone number")),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func broadcastConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Send", cbBroadcastConfirm),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbBroadcastCancel),
		),
	)
}

func joinKeyboard(inviteURL string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if inviteURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📢 Join channel", inviteURL)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Check", cbSubCheck)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func picksKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", cbPickRandom)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Today", cbPickToday),
			tgbotapi.NewInlineKeyboardButtonData("🗓 Weekly", cbPickWeekly),
		),
	)
}

// pagerKeyboard returns nil when there is only one page.
func pagerKeyboard(page, totalPages int) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if page > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀️", cbPagePrefix+strconv.Itoa(page-1)))
	}
	if page < totalPages {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶️", cbPagePrefix+strconv.Itoa(page+1)))
	}
	if len(row) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}
