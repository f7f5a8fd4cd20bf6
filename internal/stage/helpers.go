package stage

import (
	"fmt"
	"log/slog"

	"postpilot/internal/logging"
	"postpilot/internal/services"
)

// Warnings collects best-effort failures a stage tolerated.
type Warnings []string

// Persist records a failed best-effort write. The write is not retried; the
// message is logged and kept so the workflow can surface it later.
func (w *Warnings) Persist(logger *slog.Logger, op string, err error) {
	if err == nil {
		return
	}
	msg := fmt.Sprintf("%s: %v", op, err)
	*w = append(*w, msg)
	logging.WarnWithContext(logger, "best-effort write failed", "persist_warning",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
		logging.String(logging.FieldImpact, "artifact missing from history; workflow continues"),
	)
}

// Add records a non-persistence degradation.
func (w *Warnings) Add(format string, args ...any) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

// Logger returns logger or a no-op logger when nil.
func Logger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return logging.NewNop()
	}
	return logger
}
