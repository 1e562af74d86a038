package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"sublift/internal/config"
	"sublift/internal/deps"
	"sublift/internal/identification"
	"sublift/internal/logging"
	"sublift/internal/media"
	"sublift/internal/metadata"
	"sublift/internal/services"
	"sublift/internal/subtitles"
	"sublift/internal/subtitles/opensubtitles"
	"sublift/internal/textutil"
)

// Options control a single video run.
type Options struct {
	// SkipSubtitles bypasses extraction, resolution, and artifact writing.
	SkipSubtitles bool
	// SkipMetadata bypasses provider aggregation.
	SkipMetadata bool
	// ForceOCR runs frame recognition even when other strategies produced
	// tracks, unless the target language is already covered.
	ForceOCR bool
	// OCRInterval overrides the configured frame sampling interval in seconds.
	OCRInterval float64
	// OCRLanguage hints the recognition language (ISO 639-1).
	OCRLanguage string
	// OutputDir overrides the configured artifact directory.
	OutputDir string
}

// Artifact is one subtitle file written for a processed video.
type Artifact struct {
	Path     string
	Language string
	Origin   subtitles.Origin
	CueCount int
}

// Result carries everything one video run produced. Errors lists the
// degradations the run survived; a populated list does not mean the run
// failed, and a video with nothing found is still a successful run.
type Result struct {
	Path      string
	Asset     *media.VideoAsset
	Candidate identification.Candidate
	Metadata  metadata.Record
	Tracks    map[string]subtitles.Track
	Artifacts []Artifact
	Errors    []error
	Elapsed   time.Duration
}

type extractor interface {
	ExtractAll(ctx context.Context, asset *media.VideoAsset, opts subtitles.ExtractOptions) (map[string]subtitles.Track, []error)
}

type titleRecognizer interface {
	Recognize(ctx context.Context, path string) (identification.Candidate, error)
}

type metadataAggregator interface {
	Aggregate(ctx context.Context, req metadata.Request) (metadata.Record, error)
}

type subtitleFetcher interface {
	Search(ctx context.Context, req opensubtitles.SearchRequest) (opensubtitles.SearchResponse, error)
	Download(ctx context.Context, fileID int64, opts opensubtitles.DownloadOptions) (opensubtitles.DownloadResult, error)
}

// Processor wires the probe, extraction, recognition, aggregation, and
// resolution stages for single videos.
type Processor struct {
	cfg        *config.Config
	logger     *slog.Logger
	probe      func(ctx context.Context, binary, path string) (*media.VideoAsset, error)
	extractor  extractor
	recognizer titleRecognizer
	aggregator metadataAggregator
	fetcher    subtitleFetcher
	cache      metadata.ResponseCache
}

// ProcessorOption customizes processor construction.
type ProcessorOption func(*Processor)

// WithExtractor swaps the subtitle extraction service.
func WithExtractor(e extractor) ProcessorOption {
	return func(p *Processor) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithRecognizer swaps the title recognizer.
func WithRecognizer(r titleRecognizer) ProcessorOption {
	return func(p *Processor) {
		if r != nil {
			p.recognizer = r
		}
	}
}

// WithAggregator swaps the metadata aggregator.
func WithAggregator(a metadataAggregator) ProcessorOption {
	return func(p *Processor) {
		if a != nil {
			p.aggregator = a
		}
	}
}

// WithSubtitleFetcher swaps the external subtitle provider client.
func WithSubtitleFetcher(f subtitleFetcher) ProcessorOption {
	return func(p *Processor) {
		if f != nil {
			p.fetcher = f
		}
	}
}

// WithResponseCache forwards a provider response cache to the default
// metadata aggregator.
func WithResponseCache(cache metadata.ResponseCache) ProcessorOption {
	return func(p *Processor) {
		if cache != nil {
			p.cache = cache
		}
	}
}

// WithProber swaps the media probe (tests).
func WithProber(probe func(ctx context.Context, binary, path string) (*media.VideoAsset, error)) ProcessorOption {
	return func(p *Processor) {
		if probe != nil {
			p.probe = probe
		}
	}
}

// NewProcessor builds a processor with its default stage implementations.
// Stages whose external services are unconfigured degrade at run time
// instead of failing construction.
func NewProcessor(cfg *config.Config, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	proc := &Processor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		probe:  media.Probe,
	}
	for _, opt := range opts {
		opt(proc)
	}
	if proc.extractor == nil {
		proc.extractor = subtitles.NewService(cfg, logger)
	}
	if proc.recognizer == nil {
		proc.recognizer = identification.NewRecognizer(cfg, logger)
	}
	if proc.aggregator == nil {
		var aggOpts []metadata.AggregatorOption
		if proc.cache != nil {
			aggOpts = append(aggOpts, metadata.WithResponseCache(proc.cache))
		}
		proc.aggregator = metadata.NewAggregator(cfg, logger, aggOpts...)
	}
	if proc.fetcher == nil && cfg != nil && cfg.OpenSubtitles.Enabled {
		if key := strings.TrimSpace(cfg.OpenSubtitles.APIKey); key != "" {
			client, err := opensubtitles.New(opensubtitles.Config{
				APIKey:    key,
				UserAgent: cfg.OpenSubtitles.UserAgent,
				UserToken: cfg.OpenSubtitles.UserToken,
			})
			if err != nil {
				proc.logger.Warn("opensubtitles client unavailable", logging.Error(err))
			} else {
				proc.fetcher = client
				if dir := strings.TrimSpace(cfg.Paths.CacheDir); dir != "" {
					subCache, cacheErr := opensubtitles.NewCache(filepath.Join(dir, "opensubtitles"), proc.logger)
					if cacheErr != nil {
						proc.logger.Warn("subtitle download cache unavailable", logging.Error(cacheErr))
					} else {
						proc.fetcher = opensubtitles.NewCachingClient(client, subCache, proc.logger)
					}
				}
			}
		}
	}
	return proc
}

// ProcessVideo runs the full pipeline for one video. A missing or unreadable
// input file fails the run; every other stage failure degrades into
// Result.Errors and the remaining stages still execute.
func (p *Processor) ProcessVideo(ctx context.Context, path string, opts Options) (*Result, error) {
	started := time.Now()
	path = strings.TrimSpace(path)
	ctx = services.WithVideo(ctx, path)
	result := &Result{Path: path, Tracks: map[string]subtitles.Track{}}

	asset, err := p.probe(services.WithStage(ctx, "probe"), p.ffprobeBinary(), path)
	switch {
	case err == nil:
		result.Asset = asset
	case errors.Is(err, services.ErrValidation):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		// Extraction needs the probe, but recognition and metadata work
		// from the path alone.
		result.Errors = append(result.Errors, err)
	}

	recognized := make(chan struct{})
	var (
		candidate identification.Candidate
		recErr    error
	)
	go func() {
		defer close(recognized)
		candidate, recErr = p.recognizer.Recognize(services.WithStage(ctx, "recognize"), path)
	}()

	if !opts.SkipSubtitles && result.Asset != nil {
		tracks, errs := p.extractor.ExtractAll(services.WithStage(ctx, "extract"), result.Asset, subtitles.ExtractOptions{
			ForceOCR: opts.ForceOCR,
			OCR: subtitles.OCROptions{
				FrameInterval: opts.OCRInterval,
				Language:      opts.OCRLanguage,
			},
		})
		result.Tracks = tracks
		result.Errors = append(result.Errors, errs...)
	}

	<-recognized
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if recErr != nil {
		result.Errors = append(result.Errors, recErr)
	} else {
		result.Candidate = candidate
	}

	if !opts.SkipMetadata && result.Candidate.Title != "" {
		req := metadata.Request{
			Title:          result.Candidate.Title,
			Year:           result.Candidate.Year,
			RuntimeMinutes: probedMinutes(result.Asset),
		}
		record, err := p.aggregator.Aggregate(services.WithStage(ctx, "metadata"), req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Errors = append(result.Errors, err)
		} else {
			result.Metadata = record
		}
	}

	if !opts.SkipSubtitles {
		result.Tracks = p.resolveLanguages(services.WithStage(ctx, "resolve"), result)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		artifacts, errs := p.writeArtifacts(result, opts)
		result.Artifacts = artifacts
		result.Errors = append(result.Errors, errs...)
	}

	result.Elapsed = time.Since(started)
	logging.WithContext(ctx, p.logger).Info("video processed",
		logging.String("title", canonicalTitle(result)),
		logging.Int("tracks", len(result.Tracks)),
		logging.Int("artifacts", len(result.Artifacts)),
		logging.Int("degradations", len(result.Errors)),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (p *Processor) ffprobeBinary() string {
	if p.cfg != nil {
		return deps.ResolveFFprobePath(p.cfg.FFprobeBinary(), p.cfg.FFmpegBinary())
	}
	return ""
}

func (p *Processor) subtitleFormat() string {
	if p.cfg != nil {
		if format := strings.TrimSpace(p.cfg.Subtitles.Format); format != "" {
			return format
		}
	}
	return "srt"
}

// probedMinutes rounds the container duration to whole minutes for use as a
// provider search hint.
func probedMinutes(asset *media.VideoAsset) int {
	if asset == nil || asset.Duration <= 0 {
		return 0
	}
	return int((asset.Duration + 30*time.Second) / time.Minute)
}

// canonicalTitle prefers the aggregated metadata title, then the recognized
// candidate, then the bare file name.
func canonicalTitle(result *Result) string {
	if title := strings.TrimSpace(result.Metadata.Title); title != "" {
		return title
	}
	if title := strings.TrimSpace(result.Candidate.Title); title != "" {
		return title
	}
	return textutil.Stem(result.Path)
}
