package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks missing or empty required input. No external call is made.
	ErrInput = errors.New("input error")
	// ErrDecode marks generator output that could not be parsed into the expected shape.
	ErrDecode = errors.New("decode error")
	// ErrService marks a failed call to an external collaborator.
	ErrService = errors.New("service error")
	// ErrPersistence marks a failed store write.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound marks a missing record or remote resource.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks unusable runtime settings.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification label for logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrService):
		return "service"
	default:
		return "unknown"
	}
}

// Hint suggests a next step for operators based on the error classification.
func Hint(err error) string {
	switch Kind(err) {
	case "input":
		return "provide a non-empty query or required field"
	case "decode":
		return "inspect the raw model response; the model ignored the JSON contract"
	case "service":
		return "check network access and API credentials"
	case "persistence":
		return "check the database file and disk space"
	case "configuration":
		return "run 'postpilot config validate'"
	case "not_found":
		return "verify the identifier exists"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
