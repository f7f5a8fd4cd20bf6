// Package notifications pushes workflow milestones to ntfy.
//
// Callers publish an Event with a loosely typed Payload; the service formats
// title, message, and tags per event. Without a configured topic NewService
// returns a no-op, so the workflow never has to check whether notifications
// are enabled. Per-event toggles in the [notifications] section silence
// individual milestones.
package notifications
