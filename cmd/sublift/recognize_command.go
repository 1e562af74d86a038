package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sublift/internal/identification"
)

func newRecognizeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "recognize <file>",
		Short: "Recognize the movie title behind a video path",
		Long: `Derive the movie title from a video path, asking the configured LLM when
an API key is present and falling back to filename heuristics otherwise.

The file does not have to exist; recognition works from the name alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" {
				return fmt.Errorf("video path is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			recognizer := identification.NewRecognizer(cfg, logger)
			candidate, err := recognizer.Recognize(cmd.Context(), path)
			if err != nil {
				return err
			}

			if jsonOut {
				payload := map[string]any{
					"path":       path,
					"title":      candidate.Title,
					"source":     candidate.Source,
					"confidence": candidate.Confidence,
				}
				if candidate.Year > 0 {
					payload["year"] = candidate.Year
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if candidate.Year > 0 {
				fmt.Fprintf(out, "Recognized %s (%d)\n", candidate.Title, candidate.Year)
			} else {
				fmt.Fprintf(out, "Recognized %s\n", candidate.Title)
			}
			fmt.Fprintf(out, "  Source:     %s\n", candidate.Source)
			fmt.Fprintf(out, "  Confidence: %.2f\n", candidate.Confidence)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}
