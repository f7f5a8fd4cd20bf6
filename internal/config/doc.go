// Package config loads, normalizes, and validates PostPilot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// POSTPILOT_LLM_API_KEY and TWITTER_BEARER_TOKEN. The Config type centralizes
// every knob the CLI and pipeline need: data directories, reasoning service
// credentials and temperatures, candidate source limits, ranking size, and the
// revision cap.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
