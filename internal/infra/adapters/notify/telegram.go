package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fitness-coaching-platform/internal/domain/ports/adapter"
)

var _ adapter.AdminNotifier = (*TelegramNotifier)(nil)

// TelegramNotifier pushes operational notices to the operators' Telegram
// chats. Send failures to individual chats do not abort the remaining sends.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
}

func NewTelegramNotifier(token string, chatIDs []int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	var firstErr error
	for _, id := range t.chatIDs {
		msg := tgbotapi.NewMessage(id, text)
		if _, err := t.bot.Send(msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ adapter.AdminNotifier = (*NoopNotifier)(nil)

// NoopNotifier is used when no Telegram token is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, text string) error { return nil }
