package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postpilot/internal/config"
	"postpilot/internal/textutil"
)

const userAgent = "PostPilot/1.0"

// Event identifies a workflow milestone worth pushing to the operator.
type Event string

const (
	EventReviewRequested  Event = "review_requested"
	EventPublished        Event = "published"
	EventRejected         Event = "rejected"
	EventWorkflowFailed   Event = "workflow_failed"
	EventTestNotification Event = "test"
)

// Payload carries event fields. Missing keys render as empty strings.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventReviewRequested:  cfg.Notifications.Review,
			EventPublished:        cfg.Notifications.Published,
			EventRejected:         cfg.Notifications.Published,
			EventWorkflowFailed:   cfg.Notifications.Errors,
			EventTestNotification: true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	id := payload.string("workflowID")
	topic := payload.string("topic")
	switch event {
	case EventReviewRequested:
		return message{
			title: "PostPilot - Review Needed",
			body: fmt.Sprintf("📝 Draft v%s for workflow %s (%s):\n%s",
				payload.string("version"), id, topic, textutil.Fit(payload.string("draft"), 200)),
			tags:     []string{"postpilot", "review"},
			priority: "high",
		}, true
	case EventPublished:
		return message{
			title: "PostPilot - Published",
			body:  fmt.Sprintf("🚀 Workflow %s published: %s", id, payload.string("url")),
			tags:  []string{"postpilot", "published"},
		}, true
	case EventRejected:
		return message{
			title: "PostPilot - Rejected",
			body:  fmt.Sprintf("🛑 Workflow %s draft rejected (%s)", id, topic),
			tags:  []string{"postpilot", "rejected"},
		}, true
	case EventWorkflowFailed:
		body := fmt.Sprintf("❌ Workflow %s failed", id)
		if stage := payload.string("stage"); stage != "" {
			body += " during " + stage
		}
		if errText := payload.string("error"); errText != "" {
			body += ": " + errText
		}
		return message{
			title:    "PostPilot - Error",
			body:     body,
			tags:     []string{"postpilot", "error"},
			priority: "high",
		}, true
	case EventTestNotification:
		return message{
			title:    "PostPilot - Test",
			body:     "🧪 Notifications are working",
			tags:     []string{"postpilot", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) string(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
