// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - SubtitleStream: a subtitle stream classified by extraction kind
//     (embedded-text, embedded-image, closed-caption)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// A missing ffprobe binary surfaces as an error wrapping exec.ErrNotFound
// (see NotInstalled); any other failure means ffprobe ran but could not
// read the container.
package ffprobe
