// Package pipeline runs the full per-video flow: probe, subtitle
// extraction in parallel with title recognition, metadata aggregation,
// language resolution against OpenSubtitles, and artifact writing. Stage
// failures degrade into the run result; only a missing input file or a
// cancelled context fails a video outright.
package pipeline
