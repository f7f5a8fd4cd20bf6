package workflow

import (
	"context"

	"postpilot/internal/logging"
	"postpilot/internal/stage"
	"postpilot/internal/store"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	LastError   string
	Counts      map[store.Status]int
	StageHealth map[string]stage.Health
}

// Status reports workflow counts and the health of every configured stage.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	stages := append([]pipelineStage(nil), m.stages...)
	lastErr := m.lastErr
	m.mu.RUnlock()

	counts, err := m.store.CountByStatus(ctx)
	if err != nil {
		m.logger.Warn("failed to read workflow counts", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Counts: counts, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
