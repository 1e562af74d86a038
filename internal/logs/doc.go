// Package logs reads the run log written by the process and batch
// commands with bounded memory.
//
// Tail supports a "last N lines" read through a negative offset and an
// incremental read from a saved offset, which together let a viewer print
// the end of the log and then stream entries as they are appended. Callers
// cancel the context to stop a follow wait early.
package logs
