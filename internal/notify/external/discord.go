package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/watchpane/sessionwatch/internal/notify"
)

// DiscordNotifier posts an incoming-webhook message for every notification.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	filter     func(notify.Notification) bool
}

type discordPayload struct {
	Content string `json:"content"`
}

// NewDiscord returns a DiscordNotifier posting to webhookURL.
func NewDiscord(webhookURL string, filter func(notify.Notification) bool) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
		filter:     filter,
	}
}

var _ notify.Notifier = (*DiscordNotifier)(nil)

// Notify implements notify.Notifier.
func (d *DiscordNotifier) Notify(n notify.Notification) error {
	if d.filter != nil && !d.filter(n) {
		return nil
	}

	body, err := json.Marshal(discordPayload{Content: fmt.Sprintf("**%s** — %s", n.SessionName, n.Message)})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
