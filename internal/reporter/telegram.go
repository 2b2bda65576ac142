// Package reporter pushes run summaries to Telegram so the operator
// does not have to keep the dashboard open while a long queue runs.
package reporter

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-warmup-automation/internal/runner"
)

type TelegramReporter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramReporter(token string, chatID int64) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &TelegramReporter{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "HTML"
	_, err := t.bot.Send(msg)
	return err
}

// SendRunSummary reports how a finished run went.
func (t *TelegramReporter) SendRunSummary(snap runner.Snapshot) error {
	icon := "✅"
	if snap.Failed > 0 || snap.Status == runner.StatusStopped {
		icon = "⚠️"
	}
	text := fmt.Sprintf(
		"%s <b>Warmup run %s</b>\n"+
			"📋 Tasks: %d\n"+
			"✅ Completed: %d\n"+
			"❌ Failed: %d\n"+
			"⏭ Skipped: %d\n"+
			"⏱ Duration: %s",
		icon,
		snap.Status,
		len(snap.Queue),
		snap.Completed,
		snap.Failed,
		snap.Skipped,
		snap.FinishedAt.Sub(snap.StartedAt).Round(time.Second),
	)
	return t.SendMessage(text)
}

func (t *TelegramReporter) SendError(errReq error) error {
	return t.SendMessage(fmt.Sprintf("⚠️ <b>Warmup error</b>:\n%v", errReq))
}

func (t *TelegramReporter) SendStatus(message string) error {
	return t.SendMessage("ℹ️ " + message)
}
