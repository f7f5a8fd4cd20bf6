package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"postpilot/internal/logging"
)

// ErrWorkflowBusy is returned when another process holds the workflow lock.
var ErrWorkflowBusy = errors.New("workflow is locked by another process")

// LockPath returns the lock file guarding review decisions for a workflow.
func (m *Manager) LockPath(workflowID int64) string {
	return filepath.Join(m.cfg.LockDir(), fmt.Sprintf("workflow-%d.lock", workflowID))
}

func (m *Manager) acquire(workflowID int64) (*flock.Flock, error) {
	if err := os.MkdirAll(m.cfg.LockDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(m.LockPath(workflowID))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: workflow %d", ErrWorkflowBusy, workflowID)
	}
	return lock, nil
}

func (m *Manager) release(lock *flock.Flock) {
	if err := lock.Unlock(); err != nil {
		m.logger.Warn("failed to release workflow lock", logging.String("lock", lock.Path()), logging.Error(err))
	}
}
