package workflow

import (
	"log/slog"
	"sync"

	"postpilot/internal/config"
	"postpilot/internal/logging"
	"postpilot/internal/metrics"
	"postpilot/internal/notifications"
	"postpilot/internal/review"
	"postpilot/internal/store"
)

// Manager coordinates workflow execution using registered stage handlers.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	logger   *slog.Logger
	notifier notifications.Service
	metrics  *metrics.Recorder

	mu      sync.RWMutex
	stages  []pipelineStage
	gate    *review.Gate
	lastErr error
}

// NewManager constructs a workflow manager with notifications and metrics
// derived from cfg.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	return NewManagerWithOptions(cfg, st, logger, notifications.NewService(cfg), metrics.NewFromConfig(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, st *store.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return NewManagerWithOptions(cfg, st, logger, notifier, nil)
}

// NewManagerWithOptions constructs a workflow manager with full configuration.
// recorder may be nil.
func NewManagerWithOptions(cfg *config.Config, st *store.Store, logger *slog.Logger, notifier notifications.Service, recorder *metrics.Recorder) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Manager{
		cfg:      cfg,
		store:    st,
		logger:   logging.NewComponentLogger(logger, "workflow-manager"),
		notifier: notifier,
		metrics:  recorder,
	}
}
