package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeOCR()
	c.normalizeSubtitles()
	c.normalizeLLM()
	c.normalizeTMDB()
	c.normalizeOMDB()
	c.normalizeOpenSubtitles()
	c.normalizeMetadata()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SUBLIFT_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	if value, ok := os.LookupEnv("FFMPEG_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFmpeg = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("FFPROBE_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFprobe = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("CCEXTRACTOR_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Tools.CCExtractor = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("TESSERACT_CMD"); ok && strings.TrimSpace(value) != "" {
		c.Tools.Tesseract = strings.TrimSpace(value)
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.CCExtractor = strings.TrimSpace(c.Tools.CCExtractor)
	c.Tools.Tesseract = strings.TrimSpace(c.Tools.Tesseract)
}

func (c *Config) normalizeOCR() {
	if value, ok := os.LookupEnv("OCR_FRAME_INTERVAL"); ok {
		var interval float64
		if _, err := fmt.Sscanf(strings.TrimSpace(value), "%f", &interval); err == nil && interval > 0 {
			c.OCR.FrameInterval = interval
		}
	}
	if value, ok := os.LookupEnv("OCR_LANGUAGE"); ok && strings.TrimSpace(value) != "" {
		c.OCR.Language = strings.TrimSpace(value)
	}
	if c.OCR.FrameInterval <= 0 {
		c.OCR.FrameInterval = defaultOCRInterval
	}
	c.OCR.Language = strings.ToLower(strings.TrimSpace(c.OCR.Language))
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
	if c.OCR.MinCharacters <= 0 {
		c.OCR.MinCharacters = defaultOCRMinChars
	}
	if c.OCR.MinAlnumRatio <= 0 {
		c.OCR.MinAlnumRatio = defaultOCRMinAlnum
	}
	if c.OCR.CropBottomRatio < 0 {
		c.OCR.CropBottomRatio = 0
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Format = strings.ToLower(strings.TrimSpace(c.Subtitles.Format))
	if c.Subtitles.Format == "" {
		c.Subtitles.Format = defaultSubtitleFormat
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("DEEPSEEK_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
}

func (c *Config) normalizeOMDB() {
	if c.OMDB.APIKey == "" {
		if value, ok := os.LookupEnv("OMDB_API_KEY"); ok {
			c.OMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.OMDB.APIKey = strings.TrimSpace(c.OMDB.APIKey)
	c.OMDB.BaseURL = strings.TrimSpace(c.OMDB.BaseURL)
	if c.OMDB.BaseURL == "" {
		c.OMDB.BaseURL = defaultOMDBBaseURL
	}
}

func (c *Config) normalizeOpenSubtitles() {
	if c.OpenSubtitles.APIKey == "" {
		if value, ok := os.LookupEnv("OPENSUBTITLES_API_KEY"); ok {
			c.OpenSubtitles.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenSubtitles.APIKey = strings.TrimSpace(c.OpenSubtitles.APIKey)
	c.OpenSubtitles.UserToken = strings.TrimSpace(c.OpenSubtitles.UserToken)
	if c.OpenSubtitles.UserToken == "" {
		if value, ok := os.LookupEnv("OPENSUBTITLES_USER_TOKEN"); ok {
			c.OpenSubtitles.UserToken = strings.TrimSpace(value)
		}
	}
	c.OpenSubtitles.UserAgent = strings.TrimSpace(c.OpenSubtitles.UserAgent)
	if c.OpenSubtitles.UserAgent == "" {
		c.OpenSubtitles.UserAgent = defaultUserAgent
	}
	if len(c.OpenSubtitles.Languages) == 0 {
		c.OpenSubtitles.Languages = []string{"en"}
		return
	}
	langs := make([]string, 0, len(c.OpenSubtitles.Languages))
	seen := make(map[string]struct{}, len(c.OpenSubtitles.Languages))
	for _, lang := range c.OpenSubtitles.Languages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		langs = append(langs, normalized)
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	c.OpenSubtitles.Languages = langs
}

func (c *Config) normalizeMetadata() {
	if c.Metadata.ProviderTimeoutSeconds <= 0 {
		c.Metadata.ProviderTimeoutSeconds = defaultProviderTimeout
	}
	if c.Metadata.CacheTTLDays <= 0 {
		c.Metadata.CacheTTLDays = defaultCacheTTLDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
