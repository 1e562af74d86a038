package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sublift/internal/cache"
	"sublift/internal/config"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the metadata response cache",
	}
	cmd.AddCommand(newCacheStatsCommand(ctx), newCachePruneCommand(ctx))
	return cmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached provider response counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := openResponseCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\n", count)
			fmt.Fprintf(out, "Path:    %s\n", store.Path())
			fmt.Fprintf(out, "TTL:     %d day(s)\n", cfg.Metadata.CacheTTLDays)
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired provider responses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := openResponseCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context())
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No expired responses to remove")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired response(s)\n", removed)
			return nil
		},
	}
}

func openResponseCache(ctx *commandContext) (*cache.Store, *config.Config, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	store, err := cache.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open response cache: %w", err)
	}
	return store, cfg, nil
}
