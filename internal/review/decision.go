package review

import (
	"fmt"
	"strings"
)

// Action is a reviewer's verdict.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRevise  Action = "revise"
	ActionCancel  Action = "cancel"
)

// Decision is one reviewer response.
type Decision struct {
	Action   Action
	Feedback string
}

// ParseAction accepts the action names and their single-letter forms.
func ParseAction(value string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "approve", "a", "yes", "y":
		return ActionApprove, nil
	case "reject", "r", "no", "n":
		return ActionReject, nil
	case "revise", "e", "edit":
		return ActionRevise, nil
	case "cancel", "c", "quit", "q":
		return ActionCancel, nil
	case "":
		return "", fmt.Errorf("no review action given")
	default:
		return "", fmt.Errorf("unknown review action %q", value)
	}
}

// Approve builds an approve decision.
func Approve() Decision { return Decision{Action: ActionApprove} }

// Reject builds a reject decision with an optional reason.
func Reject(reason string) Decision { return Decision{Action: ActionReject, Feedback: reason} }

// Revise builds a revise decision carrying feedback.
func Revise(feedback string) Decision { return Decision{Action: ActionRevise, Feedback: feedback} }

// Cancel builds a no-decision response.
func Cancel() Decision { return Decision{Action: ActionCancel} }
