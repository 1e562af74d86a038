package subtitles

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"log/slog"

	"sublift/internal/config"
	"sublift/internal/logging"
	"sublift/internal/media"
	"sublift/internal/media/ffprobe"
	"sublift/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error
type outputRunner func(ctx context.Context, name string, args ...string) (string, error)

// Service extracts subtitle tracks from video files using external tools.
type Service struct {
	config *config.Config
	logger *slog.Logger
	run    commandRunner
	runOut outputRunner

	skipCheck bool
	readyOnce sync.Once
	readyErr  error
}

// ServiceOption customizes Service construction.
type ServiceOption func(*Service)

// WithCommandRunner overrides how external commands are invoked (used in tests).
func WithCommandRunner(run commandRunner) ServiceOption {
	return func(s *Service) {
		if run != nil {
			s.run = run
		}
	}
}

// WithOutputRunner overrides how stdout-producing commands are invoked (used in tests).
func WithOutputRunner(run outputRunner) ServiceOption {
	return func(s *Service) {
		if run != nil {
			s.runOut = run
		}
	}
}

// WithoutDependencyCheck disables external binary detection (used in tests).
func WithoutDependencyCheck() ServiceOption {
	return func(s *Service) {
		s.skipCheck = true
	}
}

// SetLogger swaps the service logger.
func (s *Service) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "subtitles")
}

// NewService constructs a subtitle extraction service.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	svc := &Service{
		config: cfg,
		logger: logging.NewComponentLogger(logger, "subtitles"),
		run:    defaultCommandRunner,
		runOut: defaultOutputRunner,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) ensureReady() error {
	if s == nil {
		return services.Wrap(services.ErrConfiguration, "subtitles", "init", "Subtitle service unavailable", nil)
	}
	s.readyOnce.Do(func() {
		if s.skipCheck {
			return
		}
		if _, err := exec.LookPath(s.ffmpegBinary()); err != nil {
			s.readyErr = services.Wrap(services.ErrToolMissing, "subtitles", "locate ffmpeg", fmt.Sprintf("Could not find %q on PATH", s.ffmpegBinary()), err)
		}
	})
	return s.readyErr
}

func (s *Service) ffmpegBinary() string {
	if s.config != nil {
		return s.config.FFmpegBinary()
	}
	return "ffmpeg"
}

func (s *Service) ccextractorBinary() string {
	if s.config != nil {
		return s.config.CCExtractorBinary()
	}
	return "ccextractor"
}

func (s *Service) tesseractBinary() string {
	if s.config != nil {
		return s.config.TesseractBinary()
	}
	return "tesseract"
}

func (s *Service) workBase() string {
	if s.config != nil && strings.TrimSpace(s.config.Paths.WorkDir) != "" {
		return s.config.Paths.WorkDir
	}
	return os.TempDir()
}

// scratchDir creates a scoped scratch directory plus a cleanup func that is
// safe on every exit path.
func (s *Service) scratchDir(pattern string) (string, func(), error) {
	base := s.workBase()
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "subtitles", "scratch", fmt.Sprintf("Cannot create work directory %q", base), err)
	}
	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "subtitles", "scratch", "Cannot create scratch directory", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// ExtractEmbedded converts one embedded text subtitle stream to a track.
func (s *Service) ExtractEmbedded(ctx context.Context, asset *media.VideoAsset, stream ffprobe.SubtitleStream) (Track, error) {
	if err := s.ensureReady(); err != nil {
		return Track{}, err
	}
	if asset == nil {
		return Track{}, services.Wrap(services.ErrValidation, "subtitles", "extract stream", "No probed video supplied", nil)
	}
	if stream.Kind != ffprobe.KindEmbeddedText {
		return Track{}, services.Wrap(services.ErrValidation, "subtitles", "extract stream",
			fmt.Sprintf("Stream 0:s:%d is %s, not an embedded text stream", stream.Index, stream.Kind), nil)
	}

	dir, cleanup, err := s.scratchDir("embedded-*")
	if err != nil {
		return Track{}, err
	}
	defer cleanup()

	outPath := filepath.Join(dir, fmt.Sprintf("stream_%d.srt", stream.Index))
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", asset.Path,
		"-map", fmt.Sprintf("0:s:%d", stream.Index),
		"-c:s", "srt",
		outPath,
	}
	if err := s.run(ctx, s.ffmpegBinary(), args...); err != nil {
		return Track{}, services.Wrap(services.ErrExternalTool, "subtitles", "extract stream",
			fmt.Sprintf("ffmpeg failed on stream 0:s:%d", stream.Index), err)
	}

	cues, err := s.readTrackFile(outPath, stream.Index)
	if err != nil {
		return Track{}, err
	}
	track := Track{
		Language: stream.Language,
		Origin:   OriginEmbedded,
		Codec:    stream.Codec,
		Source:   fmt.Sprintf("stream 0:s:%d", stream.Index),
		Cues:     cues,
	}
	s.logTrack(track)
	return track, nil
}

// ExtractCaptions pulls closed-caption data via ccextractor. streamSelect is
// only passed when the container declares more than one caption stream.
func (s *Service) ExtractCaptions(ctx context.Context, asset *media.VideoAsset, stream ffprobe.SubtitleStream, multiple bool) (Track, error) {
	if err := s.ensureReady(); err != nil {
		return Track{}, err
	}
	if asset == nil {
		return Track{}, services.Wrap(services.ErrValidation, "subtitles", "extract captions", "No probed video supplied", nil)
	}
	if !s.skipCheck {
		if _, err := exec.LookPath(s.ccextractorBinary()); err != nil {
			return Track{}, services.Wrap(services.ErrToolMissing, "subtitles", "extract captions",
				fmt.Sprintf("Could not find %q on PATH", s.ccextractorBinary()), err)
		}
	}

	dir, cleanup, err := s.scratchDir("captions-*")
	if err != nil {
		return Track{}, err
	}
	defer cleanup()

	outPath := filepath.Join(dir, fmt.Sprintf("captions_%d.srt", stream.Index))
	args := []string{asset.Path, "-o", outPath}
	if multiple {
		args = append(args, "--stream", fmt.Sprintf("%d", stream.Index+1))
	}
	if err := s.run(ctx, s.ccextractorBinary(), args...); err != nil {
		return Track{}, services.Wrap(services.ErrExternalTool, "subtitles", "extract captions",
			fmt.Sprintf("ccextractor failed on stream %d", stream.Index), err)
	}

	cues, err := s.readTrackFile(outPath, stream.Index)
	if err != nil {
		return Track{}, err
	}
	track := Track{
		Language: stream.Language,
		Origin:   OriginCaption,
		Codec:    stream.Codec,
		Source:   fmt.Sprintf("caption stream %d", stream.Index),
		Cues:     cues,
	}
	s.logTrack(track)
	return track, nil
}

func (s *Service) readTrackFile(path string, streamIndex int) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "subtitles", "read output",
			fmt.Sprintf("Extractor produced no readable output for stream %d", streamIndex), err)
	}
	cues, err := ParseSRT(data)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "subtitles", "parse output",
			fmt.Sprintf("Extractor output for stream %d is not valid SRT", streamIndex), err)
	}
	return CoalesceCues(cues), nil
}

func (s *Service) logTrack(track Track) {
	if s.logger == nil {
		return
	}
	s.logger.Info("track extracted",
		logging.String("origin", string(track.Origin)),
		logging.String(logging.FieldLanguage, track.Language),
		logging.String("source", track.Source),
		logging.Int("cues", track.CueCount()),
	)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func defaultOutputRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
