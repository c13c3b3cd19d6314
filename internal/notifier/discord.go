package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/italolelis/session_uploader/internal/attachment"
	"github.com/italolelis/session_uploader/internal/logctx"
)

type Notifier interface {
	Notify(content string) error
}

type DiscordNotifier struct {
	WebhookURL string
}

func (d *DiscordNotifier) Notify(content string) error {
	if d.WebhookURL == "" {
		return fmt.Errorf("webhook URL is not set")
	}

	payload := map[string]string{"content": content}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := http.Post(d.WebhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook failed with status %d", resp.StatusCode)
	}

	return nil
}

// WatchStore subscribes the notifier to the attachment store and announces
// terminal transitions. Returns the unsubscribe function.
func WatchStore(ctx context.Context, store *attachment.Store, n Notifier) func() {
	logger := logctx.LoggerFromContext(ctx)

	return store.Subscribe(func(ev attachment.Event) {
		if ev.Kind != attachment.EventUpdated || !ev.Record.Status.Terminal() {
			return
		}

		var content string

		switch ev.Record.Status {
		case attachment.StatusSuccess:
			content = "✅ Uploaded " + ev.Record.FileName + " to " + ev.Record.RemotePath
		case attachment.StatusError:
			message := ev.Record.ErrorMessage
			if message == "" {
				message = "upload failed"
			}

			content = "❌ Upload failed for " + ev.Record.FileName + ": " + message
		}

		if err := n.Notify(content); err != nil {
			logger.Error("failed to send notification", "attachment_id", ev.Record.ID, "err", err)
		}
	})
}
