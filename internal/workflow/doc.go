// Package workflow drives one post through the pipeline stages.
//
// The Manager runs intent, research, filter, summarize and draft in order,
// then parks the workflow at the human review gate and checkpoints the state
// as a JSON snapshot on the workflow row. A later Resume (possibly from a
// different process) loads that snapshot under a per-workflow file lock and
// applies one review decision: approve publishes, reject and cancel close the
// workflow, and revise loops back through drafting to review again, bounded
// by workflow.max_revisions.
//
// Stage failures are recorded on the state rather than returned; only
// orchestration failures (creating the workflow row, writing a snapshot,
// taking the lock) surface as errors.
package workflow
