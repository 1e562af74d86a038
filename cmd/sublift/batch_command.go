package main

import (
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sublift/internal/batch"
	"sublift/internal/config"
	"sublift/internal/logging"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags pipelineFlags
	var workers int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Process every video under a directory",
		Long: `Scan the directory tree for supported video files and run the full
pipeline over a bounded worker pool. A lock file under the output directory
refuses a second concurrent run against the same library.

Per-video failures are isolated: the run continues and the final report
lists each video's outcome. Interrupting the run marks in-flight videos
incomplete and leaves undispatched ones untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := strings.TrimSpace(args[0])
			if root == "" {
				return fmt.Errorf("library directory is required")
			}
			root, _ = filepath.Abs(root)

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := newBatchLogger(ctx, cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			procOpts, closeCache := responseCacheOptions(cfg, logger)
			defer closeCache()

			runner := batch.NewRunner(cfg, logger, batch.WithPipelineOptions(procOpts...))
			report, err := runner.Run(runCtx, root, batch.Options{
				Process: flags.pipelineOptions(),
				Workers: workers,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeBatchReportJSON(cmd, report)
			}
			printBatchReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size (0 uses the configured count, then one per CPU)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

// newBatchLogger mirrors the one-shot logger but also appends to the run log
// under log_dir so long batches leave a reviewable trail.
func newBatchLogger(ctx *commandContext, cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stdout"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		outputs = append(outputs, filepath.Join(dir, "sublift.log"))
	}
	format := "console"
	if strings.TrimSpace(cfg.Logging.Format) != "" {
		format = cfg.Logging.Format
	}
	return logging.New(logging.Options{
		Level:       ctx.resolvedLogLevel(cfg),
		Format:      format,
		OutputPaths: outputs,
	})
}

func printBatchReport(out io.Writer, report *batch.Report) {
	fmt.Fprintf(out, "Batch run %s over %s\n", report.RunID, report.Root)
	fmt.Fprintf(out, "  Scanned %d video(s) in %s: %d succeeded, %d failed, %d incomplete, %d skipped\n",
		report.Scanned, report.Elapsed.Round(10*time.Millisecond),
		report.Succeeded, report.Failed, report.Incomplete, report.Skipped)

	if len(report.Videos) == 0 {
		return
	}

	rows := make([][]string, 0, len(report.Videos))
	for _, video := range report.Videos {
		detail := video.Title
		if video.Err != nil {
			detail = truncateDetail(video.Err.Error(), 60)
		}
		rows = append(rows, []string{
			filepath.Base(video.Path),
			string(video.Status),
			detail,
			fmt.Sprintf("%d", video.Artifacts),
			video.Duration.Round(10 * time.Millisecond).String(),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Video", "Status", "Title / Error", "Artifacts", "Time"},
		rows,
		3, 4,
	))
}

func writeBatchReportJSON(cmd *cobra.Command, report *batch.Report) error {
	type videoJSON struct {
		Path         string  `json:"path"`
		Status       string  `json:"status"`
		Title        string  `json:"title,omitempty"`
		Artifacts    int     `json:"artifacts"`
		Degradations int     `json:"degradations"`
		Seconds      float64 `json:"seconds"`
		Error        string  `json:"error,omitempty"`
	}

	videos := make([]videoJSON, 0, len(report.Videos))
	for _, video := range report.Videos {
		item := videoJSON{
			Path:         video.Path,
			Status:       string(video.Status),
			Title:        video.Title,
			Artifacts:    video.Artifacts,
			Degradations: video.Degradations,
			Seconds:      video.Duration.Seconds(),
		}
		if video.Err != nil {
			item.Error = video.Err.Error()
		}
		videos = append(videos, item)
	}

	return writeJSON(cmd, map[string]any{
		"run_id":          report.RunID,
		"root":            report.Root,
		"scanned":         report.Scanned,
		"succeeded":       report.Succeeded,
		"failed":          report.Failed,
		"incomplete":      report.Incomplete,
		"skipped":         report.Skipped,
		"elapsed_seconds": report.Elapsed.Seconds(),
		"videos":          videos,
	})
}

func truncateDetail(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 3 || len(text) <= limit {
		return text
	}
	return text[:limit-3] + "..."
}
