// Package notify delivers operator alerts for severe audit events over
// Telegram. Alerting is optional and strictly best effort: a delivery
// failure never propagates.
package notify

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
)

// sender is the slice of tgbotapi.BotAPI the notifier uses. Narrowed for
// tests.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends alert texts to a fixed operator chat.
type TelegramNotifier struct {
	mu     sync.Mutex
	bot    sender
	chatID int64
	log    *logging.Logger
}

// NewTelegramNotifier connects to the Telegram API. Returns nil with no
// error when token or chat id are unset, so callers can wire it
// unconditionally.
func NewTelegramNotifier(token string, chatID int64, log *logging.Logger) (*TelegramNotifier, error) {
	token = strings.TrimSpace(token)
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

// Notify sends one alert message. Failures are logged locally and dropped.
func (n *TelegramNotifier) Notify(text string) {
	if n == nil || strings.TrimSpace(text) == "" {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)

	n.mu.Lock()
	_, err := n.bot.Send(msg)
	n.mu.Unlock()

	if err != nil {
		n.log.Warn("operator alert delivery failed", "error", err.Error())
	}
}
