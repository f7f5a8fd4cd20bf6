// Package store persists workflows and their append-only artifacts in SQLite.
//
// Each workflow row carries its status, current step, and a JSON snapshot of
// the pipeline state so a workflow parked at review can be resumed by a later
// process. Intents, candidates, ranked selections, insights, drafts, feedback,
// and the publication are child rows that are never rewritten except for the
// draft status column.
//
// Every call runs in its own implicit transaction and retries SQLITE_BUSY with
// a short backoff. Uniqueness violations surface as ErrDuplicate so callers can
// tell idempotent re-inserts apart from real failures.
//
// Schema changes bump schemaVersion in schema.go; users delete the database to
// adopt the new schema.
package store
