package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sublift/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the run log",
		Long: "Display the run log written by the process and batch commands.\n" +
			"With --follow the command keeps printing new entries until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			runCtx := cmd.Context()
			if follow {
				var stop context.CancelFunc
				runCtx, stop = signal.NotifyContext(runCtx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "sublift.log")
			return streamRunLog(runCtx, cmd, logPath, max(lines, 0), follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries until interrupted")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "How many trailing lines to print (0 means everything)")
	return cmd
}

// streamRunLog prints the trailing lines of the run log and, when follow
// is set, keeps polling for more until runCtx ends. A zero limit reads the
// whole file from the start.
func streamRunLog(runCtx context.Context, cmd *cobra.Command, logPath string, limit int, follow bool) error {
	offset := int64(-1)
	if limit == 0 {
		offset = 0
	}

	printed := false
	for {
		result, err := logs.Tail(runCtx, logPath, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail run log: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		printed = printed || len(result.Lines) > 0
		offset, limit = result.Offset, 0

		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries yet")
			}
			return nil
		}
		select {
		case <-runCtx.Done():
			return nil
		default:
		}
	}
}
