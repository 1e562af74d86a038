package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sublift/internal/cache"
	"sublift/internal/config"
	"sublift/internal/deps"
	"sublift/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show directory, tool, and provider readiness",
		Long: `Report whether the configured directories are usable, which external
tools are installed, and whether each metadata provider answers with the
configured credentials. Providers left unconfigured are reported as such;
the pipeline degrades around them rather than failing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			directories := []preflight.Result{
				preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
				preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
				preflight.CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
			}
			tools := preflight.CheckSystemDeps(cmd.Context(), cfg)
			providers := []preflight.Result{
				preflight.CheckLLMFromConfig(cfg),
				preflight.CheckTMDBFromConfig(cfg),
				preflight.CheckOMDBFromConfig(cfg),
				preflight.CheckOpenSubtitlesFromConfig(cfg),
			}

			if jsonOut {
				return writeStatusJSON(cmd, cfg, directories, tools, providers)
			}
			printStatus(cmd, cfg, directories, tools, providers)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func printStatus(cmd *cobra.Command, cfg *config.Config, directories []preflight.Result, tools []deps.Status, providers []preflight.Result) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Directories", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, result := range directories {
		fmt.Fprintln(stdout, resultLine(result, statusError, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Tools", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range toolLines(tools, colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Providers", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, result := range providers {
		fmt.Fprintln(stdout, resultLine(result, statusWarn, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Response Cache", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, resultLine(cacheStatus(cmd, cfg), statusWarn, colorize))
}

// toolLines renders one line per external tool plus a trailing summary when
// required tools are missing.
func toolLines(tools []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(tools)+1)
	missing := make([]string, 0)
	for _, tool := range tools {
		if tool.Available {
			message := "Ready"
			if tool.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", tool.Command)
			}
			if tool.Version != "" {
				message = fmt.Sprintf("Ready (command: %s, %s)", tool.Command, tool.Version)
			}
			lines = append(lines, renderStatusLine(tool.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(tool.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if tool.Optional {
			kind = statusWarn
			detail += " (optional)"
		} else {
			missing = append(missing, tool.Name)
		}
		lines = append(lines, renderStatusLine(tool.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing tools", statusWarn,
			fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

// cacheStatus opens the response cache read-only to report its size. Open
// failures degrade to a warning line; processing works without the cache.
func cacheStatus(cmd *cobra.Command, cfg *config.Config) preflight.Result {
	const name = "Metadata cache"

	store, err := cache.Open(cfg)
	if err != nil {
		return preflight.Result{Name: name, Detail: fmt.Sprintf("unavailable: %v", err)}
	}
	defer store.Close()

	count, err := store.Count(cmd.Context())
	if err != nil {
		return preflight.Result{Name: name, Detail: fmt.Sprintf("unreadable: %v", err)}
	}
	return preflight.Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%d response(s) at %s (ttl %d days)", count, store.Path(), cfg.Metadata.CacheTTLDays),
	}
}

func writeStatusJSON(cmd *cobra.Command, cfg *config.Config, directories []preflight.Result, tools []deps.Status, providers []preflight.Result) error {
	type resultJSON struct {
		Name   string `json:"name"`
		Passed bool   `json:"passed"`
		Detail string `json:"detail,omitempty"`
	}
	type toolJSON struct {
		Name      string `json:"name"`
		Command   string `json:"command,omitempty"`
		Available bool   `json:"available"`
		Optional  bool   `json:"optional"`
		Version   string `json:"version,omitempty"`
		Detail    string `json:"detail,omitempty"`
	}

	toResults := func(results []preflight.Result) []resultJSON {
		items := make([]resultJSON, 0, len(results))
		for _, result := range results {
			items = append(items, resultJSON{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
		}
		return items
	}

	toolItems := make([]toolJSON, 0, len(tools))
	for _, tool := range tools {
		toolItems = append(toolItems, toolJSON{
			Name:      tool.Name,
			Command:   tool.Command,
			Available: tool.Available,
			Optional:  tool.Optional,
			Version:   tool.Version,
			Detail:    tool.Detail,
		})
	}

	cacheResult := cacheStatus(cmd, cfg)
	return writeJSON(cmd, map[string]any{
		"directories": toResults(directories),
		"tools":       toolItems,
		"providers":   toResults(providers),
		"cache":       resultJSON{Name: cacheResult.Name, Passed: cacheResult.Passed, Detail: cacheResult.Detail},
	})
}
