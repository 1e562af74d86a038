package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Result is ffprobe's decoded -show_format/-show_streams report.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one entry from the streams block. Only the fields this
// pipeline reads are decoded; ffprobe reports many more.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Tags        map[string]string `json:"tags"`
	Disposition struct {
		Forced int `json:"forced"`
	} `json:"disposition"`
}

// Format is the container-level block. Numeric values arrive as strings.
type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// Inspect runs ffprobe against path and decodes its JSON report. A missing
// binary surfaces as an error wrapping exec.ErrNotFound so callers can tell
// "not installed" apart from an unreadable container.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe: no path to inspect")
	}

	args := []string{
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-print_format", "json",
		"--", path,
	}
	out, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if detail := strings.TrimSpace(string(exitErr.Stderr)); detail != "" {
				return Result{}, fmt.Errorf("ffprobe %s: %w: %s", filepath.Base(path), err, detail)
			}
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	var result Result
	if err := json.Unmarshal(out, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: decode report: %w", filepath.Base(path), err)
	}
	return result, nil
}

// NotInstalled reports whether err indicates the ffprobe binary was missing
// rather than the probe failing against the file.
func NotInstalled(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// StreamSummary tallies a container's streams by codec type.
type StreamSummary struct {
	Video    int
	Audio    int
	Subtitle int
}

// Summary counts the container's streams by codec type.
func (r Result) Summary() StreamSummary {
	var sum StreamSummary
	for _, stream := range r.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "video":
			sum.Video++
		case "audio":
			sum.Audio++
		case "subtitle":
			sum.Subtitle++
		}
	}
	return sum
}

// DurationSeconds returns the container duration in seconds, 0 when the
// report omits it or carries something unparseable.
func (r Result) DurationSeconds() float64 {
	if v, ok := numeric(r.Format.Duration); ok && v > 0 {
		return v
	}
	return 0
}

// SizeBytes returns the container size in bytes, 0 when unavailable.
func (r Result) SizeBytes() int64 {
	if v, ok := numeric(r.Format.Size); ok && v > 0 {
		return int64(v)
	}
	return 0
}

func numeric(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	return parsed, err == nil
}
