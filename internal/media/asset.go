package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sublift/internal/media/ffprobe"
	"sublift/internal/services"
)

// VideoAsset describes a probed video file. Fields are fixed at probe time;
// later pipeline stages treat the asset as read-only.
type VideoAsset struct {
	Path      string
	Container string
	Duration  time.Duration
	SizeBytes int64
	Streams   ffprobe.StreamSummary
	Subtitles []ffprobe.SubtitleStream
}

// DurationSeconds returns the container duration in seconds, 0 when unknown.
func (a *VideoAsset) DurationSeconds() float64 {
	if a == nil || a.Duration <= 0 {
		return 0
	}
	return a.Duration.Seconds()
}

// HasSubtitleStreams reports whether the container declares any subtitle streams.
func (a *VideoAsset) HasSubtitleStreams() bool {
	return a != nil && len(a.Subtitles) > 0
}

// inspectMedia is swapped in tests to avoid invoking the real ffprobe binary.
var inspectMedia = ffprobe.Inspect

// Probe validates the file and inspects it with ffprobe, returning the
// resulting asset. A missing or unreadable file is a validation error; a
// missing ffprobe binary is a tool error distinct from an unreadable
// container.
func Probe(ctx context.Context, binary, path string) (*VideoAsset, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "media", "probe", "Video path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "media", "probe", fmt.Sprintf("Cannot access video file %q", path), err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "media", "probe", fmt.Sprintf("%q is a directory, not a video file", path), nil)
	}

	result, err := inspectMedia(ctx, binary, path)
	if err != nil {
		if ffprobe.NotInstalled(err) {
			return nil, services.Wrap(services.ErrToolMissing, "media", "probe", "ffprobe is not installed or not on PATH", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "media", "probe", fmt.Sprintf("ffprobe could not read %q", path), err)
	}

	asset := &VideoAsset{
		Path:      path,
		Container: strings.TrimSpace(result.Format.FormatName),
		SizeBytes: result.SizeBytes(),
		Streams:   result.Summary(),
		Subtitles: result.SubtitleStreams(),
	}
	if seconds := result.DurationSeconds(); seconds > 0 {
		asset.Duration = time.Duration(seconds * float64(time.Second))
	}
	return asset, nil
}

var videoExtensions = map[string]struct{}{
	".mp4": {},
	".mkv": {},
	".avi": {},
	".mov": {},
	".wmv": {},
}

// IsVideoFile reports whether the path carries a supported video extension.
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := videoExtensions[ext]
	return ok
}
