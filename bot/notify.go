package bot

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// flash sends a short notice and deletes it after NOTIFY_DISMISS.
func (b *Bot) flash(chatID int64, text string) {
	sent, err := b.out.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send notification")
		return
	}
	delay := b.cfg.Telegram.NotifyDismiss
	if delay <= 0 {
		return
	}
	time.AfterFunc(delay, func() {
		if _, err := b.out.Request(tgbotapi.NewDeleteMessage(chatID, sent.MessageID)); err != nil {
			log.Debug().Err(err).Int64("chat_id", chatID).Int("message_id", sent.MessageID).Msg("dismiss notification")
		}
	})
}
