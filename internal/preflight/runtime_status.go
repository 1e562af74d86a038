package preflight

import (
	"context"
	"strings"

	"sublift/internal/config"
)

// CheckLLMFromConfig evaluates LLM status from config and connectivity.
// An unconfigured LLM is an acceptable state; recognition falls back to
// the filename heuristic without it.
func CheckLLMFromConfig(cfg *config.Config) Result {
	const name = "LLM"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	llm := cfg.LLMSettings()
	if llm.APIKey == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured"}
	}
	check := CheckLLM(context.Background(), name, llm)
	return Result{Name: name, Passed: check.Passed, Detail: check.Detail}
}

// CheckTMDBFromConfig evaluates TMDB status from config and connectivity.
func CheckTMDBFromConfig(cfg *config.Config) Result {
	const name = "TMDB"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.TMDB.APIKey) == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured"}
	}
	check := CheckTMDB(context.Background(), cfg.TMDB.BaseURL, cfg.TMDB.APIKey)
	return Result{Name: name, Passed: check.Passed, Detail: check.Detail}
}

// CheckOMDBFromConfig evaluates OMDb status from config and connectivity.
func CheckOMDBFromConfig(cfg *config.Config) Result {
	const name = "OMDb"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.OMDB.APIKey) == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured"}
	}
	check := CheckOMDB(context.Background(), cfg.OMDB.BaseURL, cfg.OMDB.APIKey)
	return Result{Name: name, Passed: check.Passed, Detail: check.Detail}
}

// CheckOpenSubtitlesFromConfig evaluates OpenSubtitles status from config
// and connectivity.
func CheckOpenSubtitlesFromConfig(cfg *config.Config) Result {
	const name = "OpenSubtitles"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.OpenSubtitles.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.OpenSubtitles.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	check := CheckOpenSubtitles(
		context.Background(),
		"",
		cfg.OpenSubtitles.APIKey,
		cfg.OpenSubtitles.UserAgent,
	)
	return Result{Name: name, Passed: check.Passed, Detail: check.Detail}
}
