package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outpost/internal/config"
)

const userAgent = "Outpost-Go/0.1.0"

// Service defines the notification surface exposed to daemon components.
type Service interface {
	NotifySyncCompleted(ctx context.Context, synced, failed int) error
	NotifyCaptureFailed(ctx context.Context, eventID string, cause error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		syncEnabled: cfg.Notifications.Sync,
		captEnabled: cfg.Notifications.Capture,
		errsEnabled: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	syncEnabled bool
	captEnabled bool
	errsEnabled bool
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, synced, failed int) error {
	if !n.syncEnabled {
		return nil
	}
	var title, message string
	if failed == 0 {
		title = "Outpost - Sync Complete"
		message = fmt.Sprintf("Synchronized %d records", synced)
	} else {
		title = "Outpost - Sync Complete (with errors)"
		message = fmt.Sprintf("Synchronized %d records, %d failed", synced, failed)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"outpost", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCaptureFailed(ctx context.Context, eventID string, cause error) error {
	if !n.captEnabled {
		return nil
	}
	eventID = strings.TrimSpace(eventID)
	message := fmt.Sprintf("Video capture failed for event %s", eventID)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(cause.Error()))
	}
	data := payload{
		title:    "Outpost - Capture Failed",
		message:  message,
		tags:     []string{"outpost", "capture", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errsEnabled {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Outpost - Error",
		message:  builder.String(),
		tags:     []string{"outpost", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Outpost - Test",
		message:  "Notification system test",
		tags:     []string{"outpost", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySyncCompleted(context.Context, int, int) error      { return nil }
func (noopService) NotifyCaptureFailed(context.Context, string, error) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
