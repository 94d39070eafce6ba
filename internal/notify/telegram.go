package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pricewatch/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender delivers notifications to the user's linked chat.
type TelegramSender struct {
	api telegramAPI
	log *slog.Logger
}

var _ Sender = (*TelegramSender)(nil)

// NewTelegramSender connects to the bot API with the given token.
func NewTelegramSender(token string, log *slog.Logger) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &TelegramSender{api: api, log: log}, nil
}

// Channel identifies this sender's delivery channel.
func (t *TelegramSender) Channel() model.NotificationChannel {
	return model.ChannelTelegram
}

// Send submits one notification to the user's chat.
func (t *TelegramSender) Send(_ context.Context, user *model.User, n *model.Notification) error {
	if user.TelegramChatID == nil {
		return ErrChannelUnavailable
	}

	msg := tgbotapi.NewMessage(*user.TelegramChatID, telegramText(n))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	t.log.Debug("telegram message sent", "chat_id", *user.TelegramChatID, "notification_id", n.ID)
	return nil
}

func telegramText(n *model.Notification) string {
	text := n.Message
	if n.Title != "" {
		text = n.Title + "\n\n" + text
	}

	var data model.NotificationData
	if n.Data != "" && json.Unmarshal([]byte(n.Data), &data) == nil && data.ProductURL != "" {
		text += "\n\n" + data.ProductURL
	}
	return text
}
