package config

const (
	defaultOutputDir       = "~/.local/share/sublift/output"
	defaultWorkDir         = "~/.local/share/sublift/work"
	defaultLogDir          = "~/.local/share/sublift/logs"
	defaultCacheDir        = "~/.local/share/sublift/cache"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultTMDBBaseURL     = "https://api.themoviedb.org/3"
	defaultTMDBLanguage    = "en-US"
	defaultOMDBBaseURL     = "https://www.omdbapi.com/"
	defaultLLMBaseURL      = "https://api.deepseek.com/chat/completions"
	defaultLLMModel        = "deepseek-chat"
	defaultLLMTimeout      = 60
	defaultOCRInterval     = 1.0
	defaultOCRLanguage     = "en"
	defaultOCRMinChars     = 2
	defaultOCRMinAlnum     = 0.5
	defaultOCRCropBottom   = 0.25
	defaultSubtitleFormat  = "srt"
	defaultProviderTimeout = 15
	defaultCacheTTLDays    = 7
	defaultUserAgent       = "Sublift/dev"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir,
		},
		Tools: Tools{
			FFmpeg:      "ffmpeg",
			FFprobe:     "ffprobe",
			CCExtractor: "ccextractor",
			Tesseract:   "tesseract",
		},
		OCR: OCR{
			Enabled:         true,
			FrameInterval:   defaultOCRInterval,
			Language:        defaultOCRLanguage,
			MinCharacters:   defaultOCRMinChars,
			MinAlnumRatio:   defaultOCRMinAlnum,
			CropBottomRatio: defaultOCRCropBottom,
		},
		Subtitles: Subtitles{
			Format: defaultSubtitleFormat,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		OMDB: OMDB{
			BaseURL: defaultOMDBBaseURL,
		},
		OpenSubtitles: OpenSubtitles{
			Enabled:   true,
			UserAgent: defaultUserAgent,
			Languages: []string{"en"},
		},
		Metadata: Metadata{
			ProviderTimeoutSeconds: defaultProviderTimeout,
			CacheTTLDays:           defaultCacheTTLDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
