// Package services defines shared utilities consumed by the pipeline stages
// and external adapters.
//
// Key responsibilities:
//   - Context helpers that stamp workflow IDs, stage names, and correlation
//     identifiers for logging.
//   - Error markers (input, decode, service, persistence) plus the Wrap helper,
//     so every stage reports failures in one shape and the orchestrator can
//     classify them without string matching.
//
// Adapters for the reasoning, candidate source, and publishing services live in
// subpackages (llm, reddit, twitter).
package services
