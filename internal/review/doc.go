// Package review implements the human approval gate and publishing.
//
// The gate parks a workflow at human_review and later applies exactly one
// Decision: approve publishes the current draft, reject closes the workflow,
// revise hands the feedback back to the drafter, and cancel abandons the
// workflow. Every decision leaves a feedback row against the draft it
// judged, so the draft history explains how the final post came about.
package review
