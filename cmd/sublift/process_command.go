package main

import (
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sublift/internal/pipeline"
)

// pipelineFlags carries the per-video options shared by the process and
// batch commands.
type pipelineFlags struct {
	skipSubtitles bool
	skipMetadata  bool
	forceOCR      bool
	ocrInterval   float64
	ocrLanguage   string
	outputDir     string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.skipSubtitles, "skip-subtitles", false, "Skip subtitle extraction and retrieval")
	flags.BoolVar(&f.skipMetadata, "skip-metadata", false, "Skip metadata aggregation")
	flags.BoolVar(&f.forceOCR, "force-ocr", false, "Run OCR in addition to embedded and caption extraction")
	flags.Float64Var(&f.ocrInterval, "ocr-interval", 0, "Seconds between sampled frames for OCR (0 uses the configured default)")
	flags.StringVar(&f.ocrLanguage, "ocr-language", "", "OCR recognition language as an ISO 639-1 code")
	flags.StringVarP(&f.outputDir, "output", "o", "", "Output directory for subtitle artifacts (default: configured output_dir)")
}

func (f *pipelineFlags) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		SkipSubtitles: f.skipSubtitles,
		SkipMetadata:  f.skipMetadata,
		ForceOCR:      f.forceOCR,
		OCRInterval:   f.ocrInterval,
		OCRLanguage:   strings.TrimSpace(f.ocrLanguage),
		OutputDir:     strings.TrimSpace(f.outputDir),
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags pipelineFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Run the full pipeline on a single video",
		Long: `Probe the container, extract subtitles, recognize the movie title,
aggregate metadata from the configured providers, retrieve missing language
tracks from OpenSubtitles, and write the subtitle artifacts.

Stage failures degrade: a missing tool or an unreachable provider is
reported in the summary while the remaining stages still run. Only a
missing or unreadable input file fails the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			if source == "" {
				return fmt.Errorf("video file path is required")
			}
			source, _ = filepath.Abs(source)

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			procOpts, closeCache := responseCacheOptions(cfg, logger)
			defer closeCache()

			processor := pipeline.NewProcessor(cfg, logger, procOpts...)
			result, err := processor.ProcessVideo(runCtx, source, flags.pipelineOptions())
			if err != nil {
				return err
			}

			if jsonOut {
				return writeProcessResultJSON(cmd, result)
			}
			printProcessResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func printProcessResult(out io.Writer, result *pipeline.Result) {
	fmt.Fprintf(out, "Processed %s in %s\n", result.Path, result.Elapsed.Round(10*time.Millisecond))

	title := result.Metadata.Title
	if title == "" {
		title = result.Candidate.Title
	}
	if title != "" {
		year := result.Metadata.Year
		if year == 0 {
			year = result.Candidate.Year
		}
		if year > 0 {
			fmt.Fprintf(out, "  Title:      %s (%d)\n", title, year)
		} else {
			fmt.Fprintf(out, "  Title:      %s\n", title)
		}
	}
	if result.Candidate.Source != "" {
		fmt.Fprintf(out, "  Recognized: %s (confidence %.2f)\n", result.Candidate.Source, result.Candidate.Confidence)
	}
	if result.Metadata.IMDBID != "" {
		fmt.Fprintf(out, "  IMDb:       %s\n", result.Metadata.IMDBID)
	}
	if result.Metadata.Rating > 0 {
		fmt.Fprintf(out, "  Rating:     %.1f\n", result.Metadata.Rating)
	}
	if len(result.Metadata.Sources) > 0 {
		fmt.Fprintf(out, "  Providers:  %s\n", strings.Join(result.Metadata.Sources, ", "))
	}

	if len(result.Artifacts) > 0 {
		rows := make([][]string, 0, len(result.Artifacts))
		for _, artifact := range result.Artifacts {
			rows = append(rows, []string{
				artifact.Language,
				string(artifact.Origin),
				fmt.Sprintf("%d", artifact.CueCount),
				artifact.Path,
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Language", "Origin", "Cues", "File"},
			rows,
			2,
		))
	} else {
		fmt.Fprintln(out, "  Artifacts:  none written")
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\n%d stage(s) degraded:\n", len(result.Errors))
		for _, stageErr := range result.Errors {
			fmt.Fprintf(out, "  - %v\n", stageErr)
		}
	}
}

func writeProcessResultJSON(cmd *cobra.Command, result *pipeline.Result) error {
	type artifactJSON struct {
		Path     string `json:"path"`
		Language string `json:"language"`
		Origin   string `json:"origin"`
		Cues     int    `json:"cues"`
	}
	type trackJSON struct {
		Language string `json:"language"`
		Origin   string `json:"origin"`
		Cues     int    `json:"cues"`
		Source   string `json:"source,omitempty"`
	}

	artifacts := make([]artifactJSON, 0, len(result.Artifacts))
	for _, artifact := range result.Artifacts {
		artifacts = append(artifacts, artifactJSON{
			Path:     artifact.Path,
			Language: artifact.Language,
			Origin:   string(artifact.Origin),
			Cues:     artifact.CueCount,
		})
	}

	codes := make([]string, 0, len(result.Tracks))
	for code := range result.Tracks {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	tracks := make([]trackJSON, 0, len(codes))
	for _, code := range codes {
		track := result.Tracks[code]
		tracks = append(tracks, trackJSON{
			Language: code,
			Origin:   string(track.Origin),
			Cues:     track.CueCount(),
			Source:   track.Source,
		})
	}

	degradations := make([]string, 0, len(result.Errors))
	for _, stageErr := range result.Errors {
		degradations = append(degradations, stageErr.Error())
	}

	return writeJSON(cmd, map[string]any{
		"path": result.Path,
		"candidate": map[string]any{
			"title":      result.Candidate.Title,
			"year":       result.Candidate.Year,
			"source":     result.Candidate.Source,
			"confidence": result.Candidate.Confidence,
		},
		"metadata":        result.Metadata,
		"tracks":          tracks,
		"artifacts":       artifacts,
		"degradations":    degradations,
		"elapsed_seconds": result.Elapsed.Seconds(),
	})
}
