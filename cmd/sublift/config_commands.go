package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"sublift/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage configuration",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigShowCommand(ctx), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a starter configuration file",
		Annotations: map[string]string{"loadsOwnConfig": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				switch _, err := os.Stat(target); {
				case err == nil:
					return fmt.Errorf("%s already exists (use --overwrite to replace it)", target)
				case !os.IsNotExist(err):
					return fmt.Errorf("stat %s: %w", target, err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sample configuration written to %s\n", target)
			fmt.Fprintln(out, "Set tmdb_api_key there (or export TMDB_API_KEY) before the first run.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// initTarget resolves where config init writes: an explicit path expanded,
// otherwise the standard location.
func initTarget(explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	expanded, err := config.ExpandPath(explicit)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return expanded, nil
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			redacted := *cfg
			for _, secret := range []*string{
				&redacted.LLM.APIKey,
				&redacted.TMDB.APIKey,
				&redacted.OMDB.APIKey,
				&redacted.OpenSubtitles.APIKey,
				&redacted.OpenSubtitles.UserToken,
			} {
				redactSecret(secret)
			}

			return toml.NewEncoder(cmd.OutOrStdout()).Encode(redacted)
		},
	}
}

func redactSecret(value *string) {
	if strings.TrimSpace(*value) != "" {
		*value = "REDACTED"
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Check the configuration file for problems",
		Annotations: map[string]string{"loadsOwnConfig": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var explicit string
			if ctx.configFlag != nil {
				explicit = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(explicit)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("create configured directories: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "No file found there; defaults were used")
			}
			fmt.Fprintln(out, "Configuration is valid")
			return nil
		},
	}
}
