package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Config is the full TOML configuration for Sublift.
//
// Sections by subsystem:
//   - paths: output, scratch, log, and cache directories
//   - tools: external binary names or paths (ffmpeg, ffprobe, ccextractor, tesseract)
//   - ocr: hardcoded-subtitle recognition tuning
//   - subtitles: output artifact format
//   - llm: shared LLM connection settings
//   - tmdb / omdb: metadata provider credentials
//   - opensubtitles: external subtitle retrieval
//   - metadata: provider timeout and cache TTL
//   - batch: worker pool sizing
//   - logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	OCR           OCR           `toml:"ocr"`
	Subtitles     Subtitles     `toml:"subtitles"`
	LLM           LLM           `toml:"llm"`
	TMDB          TMDB          `toml:"tmdb"`
	OMDB          OMDB          `toml:"omdb"`
	OpenSubtitles OpenSubtitles `toml:"opensubtitles"`
	Metadata      Metadata      `toml:"metadata"`
	Batch         Batch         `toml:"batch"`
	Logging       Logging       `toml:"logging"`
}

// Paths names the directories the pipeline writes into.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Tools names the external binaries the pipeline shells out to. Values may
// be bare names (resolved via PATH) or absolute paths.
type Tools struct {
	FFmpeg      string `toml:"ffmpeg"`
	FFprobe     string `toml:"ffprobe"`
	CCExtractor string `toml:"ccextractor"`
	Tesseract   string `toml:"tesseract"`
}

// OCR tunes hardcoded-subtitle recognition.
type OCR struct {
	Enabled bool `toml:"enabled"`
	// FrameInterval is the sampling interval in seconds.
	FrameInterval float64 `toml:"frame_interval"`
	// Language is the default recognition language (ISO 639-1).
	Language string `toml:"language"`
	// MinCharacters drops recognized cues shorter than this after trimming.
	MinCharacters int `toml:"min_characters"`
	// MinAlnumRatio drops cues whose alphanumeric share falls below this.
	MinAlnumRatio float64 `toml:"min_alnum_ratio"`
	// CropBottomRatio crops frames to the bottom band before recognition;
	// 0 disables cropping.
	CropBottomRatio float64 `toml:"crop_bottom_ratio"`
}

// Subtitles selects the output artifact format.
type Subtitles struct {
	Format string `toml:"format"`
}

// LLM is the shared connection block for every feature that calls the
// completion API. Recognition and enrichment read the same section.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TMDB holds The Movie Database credentials and result language.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// OMDB holds the OMDb API credentials.
type OMDB struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// OpenSubtitles configures external subtitle retrieval.
type OpenSubtitles struct {
	Enabled   bool     `toml:"enabled"`
	APIKey    string   `toml:"api_key"`
	UserAgent string   `toml:"user_agent"`
	UserToken string   `toml:"user_token"`
	Languages []string `toml:"languages"`
}

// Metadata tunes provider aggregation.
type Metadata struct {
	ProviderTimeoutSeconds int `toml:"provider_timeout_seconds"`
	CacheTTLDays           int `toml:"cache_ttl_days"`
}

// Batch sizes the batch worker pool.
type Batch struct {
	// Workers bounds the pool; 0 means one worker per CPU.
	Workers int `toml:"workers"`
}

// Logging selects log format and level.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// DefaultConfigPath returns where `sublift config init` writes and where
// loading looks first.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sublift/config.toml")
}

// Load reads the configuration from path, or from the standard locations
// when path is empty, then normalizes and validates it. The returned path
// is where a config file was found, or where one would be written; exists
// reports whether a file was actually read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		raw, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse %s: %w", filepath.Base(resolved), err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// locate resolves the config file location. An explicit path wins even when
// the file does not exist yet; otherwise the XDG location is tried, then a
// project-local sublift.toml.
func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("inspect config path: %w", err)
		}
		return expanded, true, nil
	}

	standard, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("sublift.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{standard, local} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return standard, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("make directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name or path.
func (c *Config) FFmpegBinary() string {
	return binaryOrDefault(c.Tools.FFmpeg, "ffmpeg")
}

// FFprobeBinary returns the ffprobe executable name or path.
func (c *Config) FFprobeBinary() string {
	return binaryOrDefault(c.Tools.FFprobe, "ffprobe")
}

// CCExtractorBinary returns the ccextractor executable name or path.
func (c *Config) CCExtractorBinary() string {
	return binaryOrDefault(c.Tools.CCExtractor, "ccextractor")
}

// TesseractBinary returns the tesseract executable name or path.
func (c *Config) TesseractBinary() string {
	return binaryOrDefault(c.Tools.Tesseract, "tesseract")
}

func binaryOrDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}

// LLMSettings returns the [llm] section with surrounding whitespace trimmed
// from every field.
func (c *Config) LLMSettings() LLM {
	s := c.LLM
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	s.Model = strings.TrimSpace(s.Model)
	s.Referer = strings.TrimSpace(s.Referer)
	s.Title = strings.TrimSpace(s.Title)
	return s
}

// expandPath turns ~ and relative paths into cleaned absolute paths.
// A leading ~user form is left for the shell to resolve.
func expandPath(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if rest, ok := strings.CutPrefix(value, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		switch {
		case rest == "":
			value = home
		case rest[0] == '/' || rest[0] == '\\':
			value = filepath.Join(home, rest[1:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the annotated sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}
