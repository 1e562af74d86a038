// Package metadata aggregates movie metadata from external providers.
//
// Providers are queried concurrently under a bounded limit and a per-call
// timeout; each failure or timeout simply contributes nothing. Partials
// merge field by field in priority order (LLM, then TMDB, then OMDb), with
// one exception: the IMDb ID slot only ever accepts a well-formed
// identifier, and the first one found is kept regardless of which provider
// supplied it. Ratings are normalized to a 0 to 10 scale before merging.
package metadata
