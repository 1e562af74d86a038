package preflight

import (
	"context"

	"sublift/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Directory checks always run; provider checks run only when the provider
// is configured, since an absent provider degrades rather than fails.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	}

	if llm := cfg.LLMSettings(); llm.APIKey != "" {
		results = append(results, CheckLLM(ctx, "LLM", llm))
	}
	if cfg.TMDB.APIKey != "" {
		results = append(results, CheckTMDB(ctx, cfg.TMDB.BaseURL, cfg.TMDB.APIKey))
	}
	if cfg.OMDB.APIKey != "" {
		results = append(results, CheckOMDB(ctx, cfg.OMDB.BaseURL, cfg.OMDB.APIKey))
	}
	if cfg.OpenSubtitles.Enabled {
		results = append(results, CheckOpenSubtitles(ctx, "", cfg.OpenSubtitles.APIKey, cfg.OpenSubtitles.UserAgent))
	}

	return results
}
