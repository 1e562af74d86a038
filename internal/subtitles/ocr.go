package subtitles

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sublift/internal/language"
	"sublift/internal/logging"
	"sublift/internal/media"
	"sublift/internal/services"
)

// OCROptions tunes hardcoded subtitle recovery. Zero values fall back to the
// configured defaults.
type OCROptions struct {
	// FrameInterval is the sampling period in seconds.
	FrameInterval float64
	// Language is the ISO 639-1 code to recognize.
	Language string
	// MinCharacters discards recognized fragments shorter than this.
	MinCharacters int
	// MinAlnumRatio discards fragments whose letter and digit share falls below this.
	MinAlnumRatio float64
	// CropBottomRatio limits recognition to the bottom band of the frame.
	// Zero disables cropping.
	CropBottomRatio float64
}

func (s *Service) ocrOptions(opts OCROptions) OCROptions {
	if s.config != nil {
		cfg := s.config.OCR
		if opts.FrameInterval <= 0 {
			opts.FrameInterval = cfg.FrameInterval
		}
		if strings.TrimSpace(opts.Language) == "" {
			opts.Language = cfg.Language
		}
		if opts.MinCharacters <= 0 {
			opts.MinCharacters = cfg.MinCharacters
		}
		if opts.MinAlnumRatio <= 0 {
			opts.MinAlnumRatio = cfg.MinAlnumRatio
		}
		if opts.CropBottomRatio <= 0 {
			opts.CropBottomRatio = cfg.CropBottomRatio
		}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 1.0
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = "en"
	}
	return opts
}

// ExtractOCR recovers hardcoded (burned-in) subtitles by sampling frames and
// running them through tesseract. Consecutive frames with identical text merge
// into a single cue spanning the observed interval.
func (s *Service) ExtractOCR(ctx context.Context, asset *media.VideoAsset, opts OCROptions) (Track, error) {
	if err := s.ensureReady(); err != nil {
		return Track{}, err
	}
	if asset == nil {
		return Track{}, services.Wrap(services.ErrValidation, "subtitles", "ocr", "No probed video supplied", nil)
	}
	if !s.skipCheck {
		if _, err := exec.LookPath(s.tesseractBinary()); err != nil {
			return Track{}, services.Wrap(services.ErrToolMissing, "subtitles", "ocr",
				fmt.Sprintf("Could not find %q on PATH", s.tesseractBinary()), err)
		}
	}

	opts = s.ocrOptions(opts)
	duration := asset.DurationSeconds()
	if duration <= 0 {
		return Track{}, services.Wrap(services.ErrValidation, "subtitles", "ocr",
			fmt.Sprintf("Video %q reports no duration to sample", asset.Path), nil)
	}

	dir, cleanup, err := s.scratchDir("ocr-*")
	if err != nil {
		return Track{}, err
	}
	defer cleanup()

	tessLang := language.TesseractCode(opts.Language)
	framePath := filepath.Join(dir, "frame.png")

	var (
		cues       []Cue
		lastText   string
		grabbed    int
		grabErrors int
	)
	for ts := 0.0; ts < duration; ts += opts.FrameInterval {
		if err := ctx.Err(); err != nil {
			return Track{}, err
		}
		if err := s.grabFrame(ctx, asset.Path, ts, opts.CropBottomRatio, framePath); err != nil {
			grabErrors++
			lastText = ""
			continue
		}
		grabbed++

		raw, err := s.runOut(ctx, s.tesseractBinary(), framePath, "stdout", "-l", tessLang, "--psm", "6")
		if err != nil {
			lastText = ""
			continue
		}
		text := NormalizeCueText(raw)
		if !s.ocrTextUsable(text, opts) {
			lastText = ""
			continue
		}

		start := secondsToDuration(ts)
		end := secondsToDuration(ts + opts.FrameInterval)
		if text == lastText && len(cues) > 0 {
			cues[len(cues)-1].End = end
		} else {
			cues = append(cues, Cue{Start: start, End: end, Text: text})
		}
		lastText = text
	}

	if grabbed == 0 {
		return Track{}, services.Wrap(services.ErrExternalTool, "subtitles", "ocr",
			fmt.Sprintf("ffmpeg could not sample any frames from %q (%d attempts failed)", asset.Path, grabErrors), nil)
	}

	cues = ClampCues(cues, secondsToDuration(duration))
	cues = CoalesceCues(cues)
	track := Track{
		Language: language.ToISO2(opts.Language),
		Origin:   OriginOCR,
		Codec:    "ocr",
		Source:   fmt.Sprintf("ocr %s interval %.2fs", tessLang, opts.FrameInterval),
		Cues:     cues,
	}
	if track.Language == "" {
		track.Language = strings.ToLower(strings.TrimSpace(opts.Language))
	}
	if s.logger != nil {
		s.logger.Info("ocr pass complete",
			logging.String(logging.FieldLanguage, track.Language),
			logging.Int("frames", grabbed),
			logging.Int("frame_errors", grabErrors),
			logging.Int("cues", track.CueCount()),
		)
	}
	s.logTrack(track)
	return track, nil
}

// grabFrame writes a single frame at ts seconds to outPath, optionally cropped
// to the bottom band where subtitles render.
func (s *Service) grabFrame(ctx context.Context, videoPath string, ts, cropRatio float64, outPath string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
	}
	if cropRatio > 0 && cropRatio < 1 {
		filter := fmt.Sprintf("crop=in_w:in_h*%.3f:0:in_h*%.3f", cropRatio, 1-cropRatio)
		args = append(args, "-vf", filter)
	}
	args = append(args, outPath)
	return s.run(ctx, s.ffmpegBinary(), args...)
}

func (s *Service) ocrTextUsable(text string, opts OCROptions) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if len([]rune(trimmed)) < opts.MinCharacters {
		return false
	}
	if opts.MinAlnumRatio > 0 && AlnumRatio(trimmed) < opts.MinAlnumRatio {
		return false
	}
	return true
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
