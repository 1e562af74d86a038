// Package preflight provides readiness checks for the external services,
// binaries, and filesystem paths Sublift depends on.
//
// These checks run in two contexts:
//   - The CLI "sublift status" command renders the full check set so a
//     misconfigured provider key or a missing binary is visible before a
//     long batch run.
//   - Callers that want a hard gate use RunAll and refuse to start when a
//     required check fails.
//
// Provider checks are gated by configuration. A provider without an API key
// is reported as not configured rather than failed; the pipeline degrades
// around missing providers at runtime.
package preflight
