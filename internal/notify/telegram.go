// Package notify holds the outbound, best-effort collaborators: the
// Telegram notifier and the reader enrollment-mode client.  Neither is part
// of any access decision; failures are logged and otherwise ignored.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// TelegramNotifier posts event messages to a Telegram chat via the Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   *log.Logger
}

func NewTelegramNotifier(botToken, chatID string, logger *log.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) {
	if n.botToken == "" || n.chatID == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		n.logger.Printf("telegram marshal: %v", err)
		return
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Printf("telegram request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Printf("telegram send: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.Printf("telegram send: status %d", resp.StatusCode)
	}
}
