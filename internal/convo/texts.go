package convo

import (
	"fmt"
	"html"
	"time"

	"kino-bot/internal/broadcast"
)

const (
	textSendCode           = "🎬 Send a movie code to get the movie."
	textOnlyCode           = "❌ Please send only the movie code"
	textMovieNotFound      = "❌ No movie found with this code"
	textLookupFailed       = "⚠️ Could not look up the movie right now. Please try again later."
	textShareOwnContact    = "❗ Please share your own contact using the button below."
	textRegistrationFailed = "⚠️ Registration failed. Please try again."
	textRegistered         = "✅ Registration complete!\n\n" + textSendCode
	textVideoOutsideFlow   = "🎬 Send a movie code as text to get the movie."
	textVideoOutsideAdmin  = "ℹ️ Use /admin first to upload a movie."

	textAwaitVideo       = "📤 Send the movie video."
	textNeedVideo        = "❗ Please send a video file."
	textAwaitDescription = "📝 Now send the movie description.\n\nInclude a line like <code>Genre: Action</code> so the code lands right after it."
	textNeedDescription  = "❗ The description cannot be empty. Send it as text."
	textUploadFailed     = "⚠️ Could not save the movie. Send the description again to retry."
	textCodeExhausted    = "⚠️ Could not allocate a free code. Send the description again to retry."

	textAwaitBroadcast       = "📣 Send the broadcast text.\n\n/cancel to abort."
	textNeedBroadcastText    = "❗ The broadcast text cannot be empty."
	textUseBroadcastButtons  = "Use the buttons under the preview, or /cancel."
	textBroadcastStarted     = "📤 Broadcast started. You will get a report when it finishes."
	textBroadcastCancelled   = "❌ Broadcast cancelled."
	textBroadcastNothing     = "Nothing to send."
	textBroadcastFailedStart = "⚠️ Broadcast failed: could not load the audience."
	textBroadcastRejected    = "❗ Telegram rejected this text. Check the HTML tags (escape <code>&lt;</code> as <code>&amp;lt;</code>) and send it again."

	textCancelled     = "✅ Cancelled."
	textNothingCancel = "Nothing to cancel."
	textStatsFailed   = "⚠️ Could not load statistics."
	textJoinChannel   = "📢 To use the bot, join our channel first, then press <b>✅ Check</b>."
	textNotSubscribed = "You have not joined the channel yet."
	textSubscribed    = "✅ Thank you! Now send a movie code."
	textNoRecommend   = "😔 No movies to recommend yet."
	textHelp          = "<b>🎬 Movie bot</b>\n\n" +
		"Send a movie code to get the movie.\n\n" +
		"/all - all movies\n" +
		"/movies - browse page by page\n" +
		"/random - random picks\n" +
		"/today - today's picks\n" +
		"/weekly - this week's picks\n" +
		"/genres - movies by genre\n" +
		"/recommend - a pick just for you\n" +
		"/cancel - cancel the current action"
	textAdminHelp = "\n\n<b>Admin</b>\n" +
		"/admin - upload a movie\n" +
		"/broadcast - message every user\n" +
		"/stats - statistics"
)

func welcomeText(name string) string {
	return fmt.Sprintf("👋 Welcome, <b>%s</b>!\n\nPlease register by sharing your phone number 👇", html.EscapeString(name))
}

func uploadedText(code string) string {
	return fmt.Sprintf("✅ Movie saved!\n\n🔢 Code: <code>%s</code>", code)
}

func broadcastPreviewText(text string) string {
	return "📣 <b>Broadcast preview</b>\n\n" + text + "\n\nSend this to every user?"
}

func broadcastReportText(res broadcast.Result) string {
	return fmt.Sprintf("✅ Broadcast finished\n\n👥 Total: %d\n✅ Sent: %d\n❌ Failed: %d\n⏱ %s",
		res.Total, res.Sent, res.Failed, res.Duration.Round(time.Millisecond))
}

func statsText(users, movies int) string {
	return fmt.Sprintf("📊 <b>Statistics</b>\n\n👥 Users: %d\n🎬 Movies: %d", users, movies)
}
