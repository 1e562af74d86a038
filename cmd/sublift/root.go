package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "sublift",
		Short: "Subtitle extraction and movie identification pipeline",
		Long: `Sublift extracts subtitles from movie files and identifies the film
behind each one. Extracted tracks are written next to the video, named
after the recognized title and language.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsConfigLoad(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&logLevelFlag, "log-level", "", "Override configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newProcessCommand(ctx),
		newBatchCommand(ctx),
		newRecognizeCommand(ctx),
		newProbeCommand(ctx),
		newStatusCommand(ctx),
		newLogsCommand(ctx),
		newCacheCommand(ctx),
		newConfigCommand(ctx),
	)

	return rootCmd
}
