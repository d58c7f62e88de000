// Package notify delivers best-effort outcome notifications. Delivery
// failures are logged and swallowed; a notification must never fail or delay
// an attendance attempt.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/logger"
)

// Telegram sends messages through the Telegram bot API.
type Telegram struct {
	cfg    config.TelegramConfig
	client *http.Client
	logger logger.Interface
}

// NewTelegram creates a Telegram notifier. When the bot token or chat ID is
// missing the notifier stays a no-op and logs at debug level.
func NewTelegram(cfg config.TelegramConfig, log logger.Interface) *Telegram {
	return &Telegram{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithComponent("notify"),
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Notify delivers the message. Errors are logged, never returned.
func (t *Telegram) Notify(ctx context.Context, message string) {
	if !t.cfg.Configured() {
		t.logger.Debug("telegram not configured, dropping notification")
		return
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID: t.cfg.ChatID,
		Text:   message,
	})
	if err != nil {
		t.logger.Warn("failed to encode notification", "error", err)
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIURL, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.logger.Warn("failed to build notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("notification delivery failed", "error", err)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.logger.Warn("notification rejected", "status", resp.StatusCode)
		return
	}

	t.logger.Debug("notification delivered")
}
