package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"postpilot/internal/config"
	"postpilot/internal/services"
)

const namespace = "postpilot"

// OutcomeOK labels a stage that finished without error.
const OutcomeOK = "ok"

// Recorder owns the registry and the collectors the workflow updates. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	textfile string

	stageDuration    *prometheus.HistogramVec
	stageOutcomes    *prometheus.CounterVec
	workflowOutcomes *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
}

// New builds a recorder that flushes to textfile. An empty path disables the
// export but still records in memory.
func New(textfile string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		textfile: strings.TrimSpace(textfile),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),
		stageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_outcomes_total",
			Help:      "Stage executions by outcome (ok or error kind).",
		}, []string{"stage", "outcome"}),
		workflowOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_outcomes_total",
			Help:      "Workflows reaching a terminal or review status.",
		}, []string{"status"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Degraded paths taken instead of failing.",
		}, []string{"stage", "reason"}),
	}
	r.registry.MustRegister(r.stageDuration, r.stageOutcomes, r.workflowOutcomes, r.fallbacks)
	return r
}

// NewFromConfig builds a recorder using the [metrics] section.
func NewFromConfig(cfg *config.Config) *Recorder {
	if cfg == nil {
		return New("")
	}
	return New(cfg.Metrics.Textfile)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStage records one stage execution.
func (r *Recorder) ObserveStage(stage string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = services.Kind(err)
	}
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	r.stageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// RecordWorkflow counts a workflow reaching status.
func (r *Recorder) RecordWorkflow(status string) {
	if r == nil {
		return
	}
	r.workflowOutcomes.WithLabelValues(strings.ToLower(status)).Inc()
}

// RecordFallback counts a degraded path such as the static research table.
func (r *Recorder) RecordFallback(stage, reason string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(stage, reason).Inc()
}

// Flush writes the registry to the configured textfile. It is a no-op when
// no textfile is configured.
func (r *Recorder) Flush() error {
	if r == nil || r.textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.textfile), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.textfile, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
