// Package batch runs the per-video pipeline over a whole library: a
// recursive scan for video files, a bounded worker pool, a flock guard
// against concurrent runs, and a per-run UUID that threads through every
// log line for correlation.
package batch
