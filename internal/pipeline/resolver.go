package pipeline

import (
	"context"
	"fmt"
	"strings"

	"sublift/internal/language"
	"sublift/internal/logging"
	"sublift/internal/metadata"
	"sublift/internal/services"
	"sublift/internal/subtitles"
	"sublift/internal/subtitles/opensubtitles"
)

// resolveLanguages ensures a track for English and for the metadata's
// original language when either is obtainable. Extracted tracks come first;
// missing target languages are fetched from OpenSubtitles. Fetch failures
// degrade into result.Errors.
func (p *Processor) resolveLanguages(ctx context.Context, result *Result) map[string]subtitles.Track {
	resolved := make(map[string]subtitles.Track, len(result.Tracks)+2)
	for _, track := range result.Tracks {
		p.adoptResolved(resolved, track)
	}

	for _, code := range p.targetLanguages(result.Metadata) {
		if _, covered := resolved[code]; covered {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		track, err := p.fetchExternal(ctx, code, result)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		if track.Empty() {
			continue
		}
		p.adoptResolved(resolved, track)
	}
	return resolved
}

// targetLanguages returns English plus the metadata's original language.
// Unknown language names pass through with a warning rather than dropping
// the target.
func (p *Processor) targetLanguages(record metadata.Record) []string {
	targets := []string{"en"}
	raw := strings.TrimSpace(record.Language)
	if raw == "" {
		return targets
	}
	code, known := language.Resolve(raw)
	if !known {
		logging.WarnWithContext(p.logger, "unrecognized original language", "language_unmapped",
			logging.String(logging.FieldLanguage, raw),
			logging.String(logging.FieldImpact, "subtitle search may miss the original language"),
		)
	}
	if code != "" && code != targets[0] {
		targets = append(targets, code)
	}
	return targets
}

// adoptResolved inserts a track under its language code. When two tracks
// land on one code the higher cue count wins and the loser is dropped with
// a logged decision.
func (p *Processor) adoptResolved(resolved map[string]subtitles.Track, track subtitles.Track) {
	key := track.Language
	if key == "" {
		key = "und"
	}
	incumbent, exists := resolved[key]
	if !exists {
		resolved[key] = track
		return
	}
	winner, outcome := incumbent, "kept"
	if track.CueCount() > incumbent.CueCount() {
		winner, outcome = track, "replaced"
		resolved[key] = track
	}
	attrs := logging.DecisionAttrs("track_collision", outcome,
		fmt.Sprintf("%d cues beats %d", winner.CueCount(), min(track.CueCount(), incumbent.CueCount())))
	attrs = append(attrs,
		logging.String(logging.FieldLanguage, key),
		logging.String("winner", string(winner.Origin)),
	)
	p.logger.Info("language collision resolved", logging.Args(attrs...)...)
}

// fetchExternal retrieves one language from OpenSubtitles, trying the IMDb
// ID, the TMDB ID, and a title query in that order. A missing client or an
// exhausted search is not an error, only a track that stays unobtainable.
func (p *Processor) fetchExternal(ctx context.Context, code string, result *Result) (subtitles.Track, error) {
	if p.fetcher == nil {
		return subtitles.Track{}, nil
	}
	title := canonicalTitle(result)
	year := result.Metadata.Year
	if year == 0 {
		year = result.Candidate.Year
	}
	base := opensubtitles.SearchRequest{
		IMDBID:    result.Metadata.IMDBID,
		TMDBID:    result.Metadata.TMDBID,
		Languages: []string{code},
	}

	var lastErr error
	for _, variant := range opensubtitles.MovieSearchVariants(base, title, year) {
		if err := ctx.Err(); err != nil {
			return subtitles.Track{}, err
		}
		resp, err := p.fetcher.Search(ctx, variant)
		if err != nil {
			lastErr = err
			continue
		}
		sub, ok := pickSubtitle(resp.Subtitles)
		if !ok {
			continue
		}
		download, err := p.fetcher.Download(ctx, sub.FileID, opensubtitles.DownloadOptions{Format: p.subtitleFormat()})
		if err != nil {
			lastErr = err
			continue
		}
		cues, err := subtitles.ParseSRT(download.Data)
		if err != nil {
			lastErr = fmt.Errorf("parse downloaded subtitle %q: %w", download.FileName, err)
			continue
		}
		lang := language.ToISO2(sub.Language)
		if lang == "" {
			lang = code
		}
		source := download.FileName
		if source == "" {
			source = sub.Release
		}
		p.logger.Info("external subtitle fetched",
			logging.String(logging.FieldLanguage, lang),
			logging.String("source", source),
			logging.Int("cues", len(cues)),
		)
		return subtitles.Track{
			Language: lang,
			Origin:   subtitles.OriginExternal,
			Source:   source,
			Cues:     cues,
		}, nil
	}

	if lastErr != nil {
		return subtitles.Track{}, services.Wrap(services.ErrTransient, "pipeline", "resolve",
			fmt.Sprintf("Could not fetch %s subtitles for %q", code, title), lastErr)
	}
	return subtitles.Track{}, nil
}

// pickSubtitle takes the first usable candidate, skipping machine
// translations when a human-made file exists. Results arrive ordered by
// download count.
func pickSubtitle(subs []opensubtitles.Subtitle) (opensubtitles.Subtitle, bool) {
	var fallback opensubtitles.Subtitle
	var haveFallback bool
	for _, sub := range subs {
		if sub.FileID <= 0 {
			continue
		}
		if !sub.AITranslated {
			return sub, true
		}
		if !haveFallback {
			fallback, haveFallback = sub, true
		}
	}
	return fallback, haveFallback
}
