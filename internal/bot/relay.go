package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatRelay posts group chat messages to the group's Telegram chat as
// plain text.
type ChatRelay struct {
	sender Sender
}

func NewChatRelay(sender Sender) *ChatRelay {
	return &ChatRelay{sender: sender}
}

func (r *ChatRelay) PublishGroupMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}
