package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sublift/internal/deps"
	"sublift/internal/media"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a video container's subtitle streams",
		Long: `Run ffprobe against the file and report the container format, duration,
and every declared subtitle stream with its codec classification.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" {
				return fmt.Errorf("video path is required")
			}
			path, _ = filepath.Abs(path)

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			binary := deps.ResolveFFprobePath(cfg.FFprobeBinary(), cfg.FFmpegBinary())
			asset, err := media.Probe(cmd.Context(), binary, path)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeProbeJSON(cmd, asset)
			}
			printProbeResult(cmd.OutOrStdout(), asset)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func printProbeResult(out io.Writer, asset *media.VideoAsset) {
	fmt.Fprintf(out, "Probed %s\n", asset.Path)
	container := asset.Container
	if container == "" {
		container = "unknown"
	}
	fmt.Fprintf(out, "  Container: %s\n", container)
	if asset.Duration > 0 {
		fmt.Fprintf(out, "  Duration:  %s\n", asset.Duration.Round(time.Second))
	}
	if asset.SizeBytes > 0 {
		fmt.Fprintf(out, "  Size:      %s\n", formatBytes(asset.SizeBytes))
	}
	fmt.Fprintf(out, "  Streams:   %d video, %d audio, %d subtitle\n",
		asset.Streams.Video, asset.Streams.Audio, asset.Streams.Subtitle)

	if !asset.HasSubtitleStreams() {
		fmt.Fprintln(out, "  No subtitle streams declared")
		return
	}

	rows := make([][]string, 0, len(asset.Subtitles))
	for _, stream := range asset.Subtitles {
		language := stream.Language
		if language == "" {
			language = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("0:s:%d", stream.Index),
			stream.Codec,
			string(stream.Kind),
			language,
			yesNo(stream.Forced),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Stream", "Codec", "Kind", "Language", "Forced"},
		rows,
	))
}

func writeProbeJSON(cmd *cobra.Command, asset *media.VideoAsset) error {
	type streamJSON struct {
		Stream   string `json:"stream"`
		Codec    string `json:"codec"`
		Kind     string `json:"kind"`
		Language string `json:"language,omitempty"`
		Forced   bool   `json:"forced"`
	}

	streams := make([]streamJSON, 0, len(asset.Subtitles))
	for _, stream := range asset.Subtitles {
		streams = append(streams, streamJSON{
			Stream:   fmt.Sprintf("0:s:%d", stream.Index),
			Codec:    stream.Codec,
			Kind:     string(stream.Kind),
			Language: stream.Language,
			Forced:   stream.Forced,
		})
	}

	return writeJSON(cmd, map[string]any{
		"path":             asset.Path,
		"container":        asset.Container,
		"duration_seconds": asset.DurationSeconds(),
		"size_bytes":       asset.SizeBytes,
		"video_streams":    asset.Streams.Video,
		"audio_streams":    asset.Streams.Audio,
		"subtitle_streams": streams,
	})
}
