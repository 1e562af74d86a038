// Package media models probed video files and decides which paths count as
// video input. Probing runs ffprobe once per file; the resulting VideoAsset
// is treated as immutable by the rest of the pipeline.
package media
