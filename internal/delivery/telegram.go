package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tv-consensus-bot/internal/api"
)

// TelegramNotifier delivers verdicts to a Telegram chat via the bot
// sendMessage endpoint.
type TelegramNotifier struct {
	client *api.Client
	token  string
	chatID string
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier reads credentials from TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID. Both must be set.
func NewTelegramNotifier(client *api.Client) (*TelegramNotifier, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatID == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set")
	}
	return &TelegramNotifier{client: client, token: token, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.token)
	body := map[string]any{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	req := api.NewRequest("POST", url).WithContext(ctx).WithBody(body)
	if _, err := n.client.DoWithRetry(req, nil); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}
