package workflow

import (
	"context"
	"errors"
	"strconv"

	"postpilot/internal/logging"
	"postpilot/internal/notifications"
	"postpilot/internal/pipeline"
)

func (m *Manager) notifyReview(ctx context.Context, state pipeline.State) {
	m.publish(ctx, notifications.EventReviewRequested, notifications.Payload{
		"workflowID": state.WorkflowID,
		"topic":      state.Topic,
		"version":    strconv.Itoa(state.DraftVersion),
		"draft":      state.DraftContent,
	})
}

func (m *Manager) notifyOutcome(ctx context.Context, state pipeline.State, stageName string) {
	payload := notifications.Payload{"workflowID": state.WorkflowID, "topic": state.Topic}
	switch {
	case state.Published:
		payload["url"] = state.TweetURL
		m.publish(ctx, notifications.EventPublished, payload)
	case state.Failed():
		payload["stage"] = stageName
		payload["error"] = state.Error
		m.publish(ctx, notifications.EventWorkflowFailed, payload)
	case state.Rejected:
		m.publish(ctx, notifications.EventRejected, payload)
	}
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, m.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not send notification", logging.String("event", string(event)))
			return
		}
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "check ntfy topic and network access"),
			logging.String(logging.FieldImpact, "operator was not notified"),
			logging.Error(err),
		)
	}
}
