// Package llm provides the reasoning service client used by every stage that
// needs generated text.
//
// # Entry Points
//
// Generator: the interface stages depend on (persona + prompt in, text out).
// NewClient: construct an OpenAI-compatible chat client (Groq by default).
// Client.WithTemperature: per-stage copy of the client.
// Client.CompleteJSON: JSON-mode completion, used automatically by GenerateJSON.
// GenerateJSON: generic structured call returning the decoded value and raw text.
// DecodeLLMJSON: tolerant decoder for fenced or prose-wrapped JSON.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, 4 attempts by
// default), honouring Retry-After. Context cancellation aborts retries
// immediately. The pipeline itself never retries.
package llm
