// Package llm provides a minimal client for OpenAI-compatible chat
// completion APIs, used for movie title recognition and metadata
// enrichment.
//
// The client defaults to DeepSeek but accepts any endpoint speaking the
// chat completion schema. Requests always ask for JSON-only output;
// DecodeLLMJSON tolerates the formatting quirks models produce anyway
// (code fences, leading prose, tool-call argument payloads).
//
// Transient failures (HTTP 408/429/5xx, timeouts, empty completions) are
// retried with exponential backoff, honoring Retry-After when present.
package llm
