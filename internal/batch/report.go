package batch

import "time"

// VideoStatus classifies one video's outcome within a batch run.
type VideoStatus string

const (
	// StatusSucceeded covers completed runs, degraded ones included.
	StatusSucceeded VideoStatus = "succeeded"
	// StatusFailed covers fatal per-video errors.
	StatusFailed VideoStatus = "failed"
	// StatusIncomplete covers videos in flight when the run was cancelled.
	StatusIncomplete VideoStatus = "incomplete"
)

// VideoResult records one video's outcome.
type VideoResult struct {
	Path         string
	Status       VideoStatus
	Title        string
	Artifacts    int
	Degradations int
	Duration     time.Duration
	Err          error
}

// Report summarizes a batch run.
type Report struct {
	RunID      string
	Root       string
	Scanned    int
	Videos     []VideoResult
	Succeeded  int
	Failed     int
	Incomplete int
	// Skipped counts scanned videos never dispatched before cancellation.
	Skipped int
	Elapsed time.Duration
}
