// Package service contains infrastructure adapters for outbound ports.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/grindstone-bot/grindstone/internal/domain/notification"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// LogNotifier implements notification.Notifier by writing messages to the
// log. Used when no chat gateway is configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates the notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the message instead of delivering it.
func (n *LogNotifier) Send(_ context.Context, msg notification.Message) error {
	n.log.Info("notification",
		logger.GuildID(msg.GuildID),
		logger.ChannelID(msg.ChannelID),
		logger.UserID(msg.UserID),
		logger.F("text", msg.Text),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// WebhookNotifierConfig configures the webhook notifier.
type WebhookNotifierConfig struct {
	// URL is the endpoint messages are POSTed to.
	URL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration
}

// DefaultWebhookNotifierConfig returns sensible defaults for the given URL.
func DefaultWebhookNotifierConfig(url string) WebhookNotifierConfig {
	return WebhookNotifierConfig{
		URL:     url,
		Timeout: 10 * time.Second,
	}
}

// WebhookNotifier implements notification.Notifier by POSTing messages as
// JSON to an external chat gateway. Delivery is single shot; the caller owns
// the decision to log and move on.
type WebhookNotifier struct {
	config WebhookNotifierConfig
	client *http.Client
}

// NewWebhookNotifier creates the notifier.
func NewWebhookNotifier(config WebhookNotifierConfig) *WebhookNotifier {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type webhookPayload struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// Send delivers the message to the configured webhook.
func (n *WebhookNotifier) Send(ctx context.Context, msg notification.Message) error {
	body, err := json.Marshal(webhookPayload{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Text:      msg.Text,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
