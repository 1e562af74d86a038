package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"sublift/internal/logging"
	"sublift/internal/services"
	"sublift/internal/subtitles"
	"sublift/internal/textutil"
)

// writeArtifacts renders every resolved track as {title}_{code}.{format}
// under the output directory. One failed write does not stop the rest.
func (p *Processor) writeArtifacts(result *Result, opts Options) ([]Artifact, []error) {
	if len(result.Tracks) == 0 {
		return nil, nil
	}

	outputDir := opts.OutputDir
	if outputDir == "" && p.cfg != nil {
		outputDir = p.cfg.Paths.OutputDir
	}
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, []error{services.Wrap(services.ErrConfiguration, "pipeline", "artifacts",
			fmt.Sprintf("Cannot create output directory %q", outputDir), err)}
	}

	title := canonicalTitle(result)
	format := p.subtitleFormat()

	codes := make([]string, 0, len(result.Tracks))
	for code := range result.Tracks {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var artifacts []Artifact
	var errs []error
	for _, code := range codes {
		track := result.Tracks[code]
		name := textutil.SanitizeFileName(fmt.Sprintf("%s_%s.%s", title, code, format))
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, subtitles.RenderSRT(track.Cues), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write subtitle artifact %q: %w", path, err))
			continue
		}
		artifacts = append(artifacts, Artifact{
			Path:     path,
			Language: code,
			Origin:   track.Origin,
			CueCount: track.CueCount(),
		})
		p.logger.Info("subtitle artifact written",
			logging.String(logging.FieldLanguage, code),
			logging.String("path", path),
			logging.String("origin", string(track.Origin)),
			logging.Int("cues", track.CueCount()),
		)
	}
	return artifacts, errs
}
