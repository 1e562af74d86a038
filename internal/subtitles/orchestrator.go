package subtitles

import (
	"context"
	"fmt"
	"sync"

	"sublift/internal/language"
	"sublift/internal/logging"
	"sublift/internal/media"
	"sublift/internal/media/ffprobe"
	"sublift/internal/services"
)

// maxParallelExtracts bounds concurrent ffmpeg invocations per video.
const maxParallelExtracts = 2

// ExtractOptions controls a full extraction pass over one video.
type ExtractOptions struct {
	// ForceOCR runs frame recognition even when other tracks were recovered,
	// unless the target language is already covered.
	ForceOCR bool
	// OCR carries overrides for the recognition pass.
	OCR OCROptions
}

type extractResult struct {
	track Track
	err   error
}

// ExtractAll runs every applicable extraction strategy for one probed video
// and returns the best track per language. Strategy failures degrade into the
// returned error slice instead of aborting the pass.
func (s *Service) ExtractAll(ctx context.Context, asset *media.VideoAsset, opts ExtractOptions) (map[string]Track, []error) {
	tracks := make(map[string]Track)
	var errs []error
	if asset == nil {
		return tracks, append(errs, services.Wrap(services.ErrValidation, "subtitles", "extract", "No probed video supplied", nil))
	}
	if err := s.ensureReady(); err != nil {
		return tracks, append(errs, err)
	}

	var textStreams, captionStreams []ffprobe.SubtitleStream
	for _, stream := range asset.Subtitles {
		switch stream.Kind {
		case ffprobe.KindEmbeddedText:
			textStreams = append(textStreams, stream)
		case ffprobe.KindClosedCaption:
			captionStreams = append(captionStreams, stream)
		case ffprobe.KindEmbeddedImage:
			if s.logger != nil {
				s.logger.Info("skipping bitmap subtitle stream",
					logging.String("codec", stream.Codec),
					logging.String(logging.FieldLanguage, stream.Language),
					logging.Int("stream", stream.Index),
				)
			}
		}
	}

	results := make([]extractResult, len(textStreams))
	sem := make(chan struct{}, maxParallelExtracts)
	var wg sync.WaitGroup
	for i, stream := range textStreams {
		wg.Add(1)
		go func(i int, stream ffprobe.SubtitleStream) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			track, err := s.ExtractEmbedded(ctx, asset, stream)
			results[i] = extractResult{track: track, err: err}
		}(i, stream)
	}
	wg.Wait()
	for _, res := range results {
		s.adoptTrack(tracks, &errs, res.track, res.err)
	}

	multiple := len(captionStreams) > 1
	for _, stream := range captionStreams {
		track, err := s.ExtractCaptions(ctx, asset, stream, multiple)
		s.adoptTrack(tracks, &errs, track, err)
	}

	if lang, ok := s.ocrTarget(opts, tracks); ok {
		ocrOpts := opts.OCR
		ocrOpts.Language = lang
		track, err := s.ExtractOCR(ctx, asset, ocrOpts)
		s.adoptTrack(tracks, &errs, track, err)
	}

	return tracks, errs
}

// ocrTarget decides whether a recognition pass should run and for which
// language. Recognition never duplicates a language another strategy already
// covered, even when forced.
func (s *Service) ocrTarget(opts ExtractOptions, tracks map[string]Track) (string, bool) {
	if s.config != nil && !s.config.OCR.Enabled {
		return "", false
	}
	if !opts.ForceOCR && len(tracks) > 0 {
		return "", false
	}
	lang := opts.OCR.Language
	if lang == "" && s.config != nil {
		lang = s.config.OCR.Language
	}
	if lang == "" {
		lang = "en"
	}
	key := language.ToISO2(lang)
	if key == "" {
		key = lang
	}
	if _, covered := tracks[key]; covered {
		if s.logger != nil {
			attrs := logging.DecisionAttrs("strategy_selection", "ocr skipped", "language already covered")
			attrs = append(attrs, logging.String(logging.FieldLanguage, key))
			s.logger.Info("ocr skipped", logging.Args(attrs...)...)
		}
		return "", false
	}
	return lang, true
}

// adoptTrack merges one extraction outcome into the per-language track map.
// A lower origin rank beats a higher one; within the same rank the larger cue
// count wins.
func (s *Service) adoptTrack(tracks map[string]Track, errs *[]error, track Track, err error) {
	if err != nil {
		*errs = append(*errs, err)
		return
	}
	if track.Empty() {
		if s.logger != nil {
			s.logger.Warn("discarding empty track",
				logging.String("origin", string(track.Origin)),
				logging.String("source", track.Source),
			)
		}
		return
	}
	key := track.Language
	if key == "" {
		key = "und"
	}
	incumbent, exists := tracks[key]
	if !exists {
		tracks[key] = track
		return
	}
	winner, loser, result := incumbent, track, "kept"
	if betterTrack(track, incumbent) {
		winner, loser, result = track, incumbent, "replaced"
		tracks[key] = track
	}
	if s.logger != nil {
		attrs := logging.DecisionAttrs("merge_winner", result, fmt.Sprintf("beats %s", trackLabel(loser)))
		attrs = append(attrs,
			logging.String(logging.FieldLanguage, key),
			logging.String("winner", trackLabel(winner)),
		)
		s.logger.Info("track conflict resolved", logging.Args(attrs...)...)
	}
}

func betterTrack(challenger, incumbent Track) bool {
	cr, ir := originRank(challenger.Origin), originRank(incumbent.Origin)
	if cr != ir {
		return cr < ir
	}
	return challenger.CueCount() > incumbent.CueCount()
}

func trackLabel(track Track) string {
	return fmt.Sprintf("%s/%s (%d cues)", track.Origin, track.Source, track.CueCount())
}
