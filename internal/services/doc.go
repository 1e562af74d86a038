// Package services defines cross-cutting service helpers: sentinel error
// markers with contextual wrapping, and context carriers for the video,
// stage, and run identifiers that structured logging picks up.
package services
