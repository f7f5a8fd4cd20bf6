// Package pipeline defines the workflow state value and the domain records
// passed between stages.
//
// State is copied between stages rather than shared. Step ordering is
// enforced by Advance, and Require lets a stage handler reject a state whose
// preconditions have not been populated yet.
package pipeline
