package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"sublift/internal/config"
	"sublift/internal/deps"
	"sublift/internal/services/llm"
)

const (
	defaultTMDBBaseURL          = "https://api.themoviedb.org/3"
	defaultOMDBBaseURL          = "https://www.omdbapi.com"
	defaultOpenSubtitlesBaseURL = "https://api.opensubtitles.com/api/v1"

	// providerTimeout bounds each REST probe; llmTimeout is longer because
	// a completion round trip is part of the LLM health check.
	providerTimeout = 5 * time.Second
	llmTimeout      = 30 * time.Second
)

var probeClient = &http.Client{Timeout: providerTimeout}

// probe is a single authenticated GET whose status code carries the
// verdict. The providers sublift talks to all answer bad keys with 401
// or 403, so one probe shape covers them.
type probe struct {
	name    string
	url     string
	headers map[string]string
}

func (p probe) run(ctx context.Context) Result {
	probeCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.url, nil)
	if err != nil {
		return Result{Name: p.name, Detail: fmt.Sprintf("bad endpoint: %v", err)}
	}
	for header, value := range p.headers {
		req.Header.Set(header, value)
	}

	resp, err := probeClient.Do(req)
	if err != nil {
		return Result{Name: p.name, Detail: fmt.Sprintf("unreachable: %v", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: p.name, Passed: true, Detail: "key accepted"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: p.name, Detail: fmt.Sprintf("API key rejected (HTTP %d)", resp.StatusCode)}
	default:
		return Result{Name: p.name, Detail: fmt.Sprintf("unexpected HTTP %d", resp.StatusCode)}
	}
}

// endpointBase normalizes a configured base URL, falling back to the
// provider's public endpoint when none is set.
func endpointBase(configured, fallback string) string {
	base := strings.TrimRight(strings.TrimSpace(configured), "/")
	if base == "" {
		return fallback
	}
	return base
}

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// The health check makes a single attempt; retry belongs to real requests.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "no API key configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: describeLLMFailure(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API responded"}
}

// CheckTMDB verifies TMDB connectivity and key validity against the
// configuration endpoint.
func CheckTMDB(ctx context.Context, baseURL, apiKey string) Result {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return Result{Name: "TMDB", Detail: "no API key configured"}
	}
	base := endpointBase(baseURL, defaultTMDBBaseURL)
	return probe{
		name: "TMDB",
		url:  base + "/configuration?api_key=" + url.QueryEscape(key),
	}.run(ctx)
}

// CheckOMDB verifies OMDb connectivity and key validity with a known title
// lookup, since OMDb has no dedicated auth endpoint.
func CheckOMDB(ctx context.Context, baseURL, apiKey string) Result {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return Result{Name: "OMDb", Detail: "no API key configured"}
	}
	params := url.Values{"apikey": {key}, "i": {"tt0133093"}}
	return probe{
		name: "OMDb",
		url:  endpointBase(baseURL, defaultOMDBBaseURL) + "/?" + params.Encode(),
	}.run(ctx)
}

// CheckOpenSubtitles verifies OpenSubtitles connectivity and key validity.
// An empty baseURL targets the public API.
func CheckOpenSubtitles(ctx context.Context, baseURL, apiKey, userAgent string) Result {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return Result{Name: "OpenSubtitles", Detail: "no API key configured"}
	}
	agent := strings.TrimSpace(userAgent)
	if agent == "" {
		agent = "Sublift/dev"
	}
	return probe{
		name: "OpenSubtitles",
		url:  endpointBase(baseURL, defaultOpenSubtitlesBaseURL) + "/infos/formats",
		headers: map[string]string{
			"Api-Key":    key,
			"User-Agent": agent,
		},
	}.run(ctx)
}

// CheckDirectoryAccess verifies that the directory exists and grants full
// access to the current user.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(format string, args ...any) Result {
		return Result{Name: name, Detail: path + ": " + fmt.Sprintf(format, args...)}
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fail("does not exist")
	case err != nil:
		return fail("stat: %v", err)
	case !info.IsDir():
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("permission denied (%v)", err)
	}
	return Result{Name: name, Passed: true, Detail: path + " (access ok)"}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out
// to. The CLI status command renders this list; the batch runner consults
// it only through the per-stage tool checks, so missing optional tools
// never block a run here.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for stream extraction and frame sampling",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobePath(cfg.FFprobeBinary(), cfg.FFmpegBinary()),
			Description: "Required for container inspection",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "CCExtractor",
			Command:     cfg.CCExtractorBinary(),
			Description: "Extracts broadcast closed captions",
			Optional:    true,
			VersionArgs: []string{"--version"},
		},
	}
	tesseract := deps.Requirement{
		Name:        "Tesseract",
		Command:     cfg.TesseractBinary(),
		Description: "Required for hardcoded-subtitle recognition",
		VersionArgs: []string{"--version"},
	}
	if !cfg.OCR.Enabled {
		tesseract.Optional = true
		tesseract.Description = "Used for hardcoded-subtitle recognition when OCR is enabled"
	}
	requirements = append(requirements, tesseract)
	return deps.CheckBinaries(ctx, requirements)
}

// describeLLMFailure keeps health check failures short enough for one
// status line.
func describeLLMFailure(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "no answer before the deadline (LLM API unresponsive)"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "network timeout reaching the LLM API"
	}
	return err.Error()
}
