package subtitles

import (
	"context"
	"errors"
	"testing"
	"time"

	"sublift/internal/media/ffprobe"
	"sublift/internal/services"
)

const singleCueSRT = "1\n00:00:01,000 --> 00:00:02,000\nOnly cue\n"

const tripleCueSRT = `1
00:00:01,000 --> 00:00:02,000
One

2
00:00:03,000 --> 00:00:04,000
Two

3
00:00:05,000 --> 00:00:06,000
Three
`

func TestExtractAllPrefersEmbeddedOverCaption(t *testing.T) {
	stub := &stubTools{t: t, ffmpegSRT: sampleSRT, captionSRT: tripleCueSRT}
	svc, cfg := testService(t, stub)
	cfg.OCR.Enabled = false

	asset := testAsset(time.Hour,
		ffprobe.SubtitleStream{Index: 0, Codec: "subrip", Kind: ffprobe.KindEmbeddedText, Language: "en"},
		ffprobe.SubtitleStream{Index: 1, Codec: "eia_608", Kind: ffprobe.KindClosedCaption, Language: "en"},
	)
	tracks, errs := svc.ExtractAll(context.Background(), asset, ExtractOptions{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	track, ok := tracks["en"]
	if !ok {
		t.Fatalf("missing en track, got %v", tracks)
	}
	if track.Origin != OriginEmbedded {
		t.Errorf("Origin = %s, want embedded despite caption having more cues", track.Origin)
	}
}

func TestExtractAllLargerCueCountWinsSameOrigin(t *testing.T) {
	stub := &stubTools{t: t, ffmpegSRT: sampleSRT, perStream: map[int]string{
		0: singleCueSRT,
		1: tripleCueSRT,
	}}
	svc, cfg := testService(t, stub)
	cfg.OCR.Enabled = false

	asset := testAsset(time.Hour,
		ffprobe.SubtitleStream{Index: 0, Codec: "subrip", Kind: ffprobe.KindEmbeddedText, Language: "en"},
		ffprobe.SubtitleStream{Index: 1, Codec: "ass", Kind: ffprobe.KindEmbeddedText, Language: "en"},
	)
	tracks, errs := svc.ExtractAll(context.Background(), asset, ExtractOptions{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	track := tracks["en"]
	if track.CueCount() != 3 {
		t.Errorf("CueCount() = %d, want the 3-cue stream to win", track.CueCount())
	}
	if track.Source != "stream 0:s:1" {
		t.Errorf("Source = %q, want stream 0:s:1", track.Source)
	}
}

func TestExtractAllKeepsDistinctLanguages(t *testing.T) {
	stub := &stubTools{t: t, ffmpegSRT: sampleSRT}
	svc, cfg := testService(t, stub)
	cfg.OCR.Enabled = false

	asset := testAsset(time.Hour,
		ffprobe.SubtitleStream{Index: 0, Codec: "subrip", Kind: ffprobe.KindEmbeddedText, Language: "en"},
		ffprobe.SubtitleStream{Index: 1, Codec: "subrip", Kind: ffprobe.KindEmbeddedText, Language: "ja"},
		ffprobe.SubtitleStream{Index: 2, Codec: "subrip", Kind: ffprobe.KindEmbeddedText, Language: ""},
	)
	tracks, errs := svc.ExtractAll(context.Background(), asset, ExtractOptions{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	for _, lang := range []string{"en", "ja", "und"} {
		if _, ok := tracks[lang]; !ok {
			t.Errorf("missing %q track, got %d tracks", lang, len(tracks))
		}
	}
}

func TestExtractAllOCRFallbackWhenNoStreams(t *testing.T) {
	stub := &stubTools{t: t, ocrTexts: []string{"Burned in", "Burned in"}}
	svc, cfg := testService(t, stub)
	cfg.OCR.FrameInterval = 1.0
	cfg.OCR.MinCharacters = 2
	cfg.OCR.MinAlnumRatio = 0.5

	tracks, errs := svc.ExtractAll(context.Background(), testAsset(2*time.Second), ExtractOptions{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	track, ok := tracks["en"]
	if !ok {
		t.Fatalf("missing en track from recognition fallback")
	}
	if track.Origin != OriginOCR || track.CueCount() != 1 {
		t.Errorf("track = %s with %d cues, want ocr with 1", track.Origin, track.CueCount())
	}
}

func TestExtractAllForcedOCRSkipsCoveredLanguage(t *testing.T) {
	stub := &stubTools{t: t, ffmpegSRT: sampleSRT}
	svc, cfg := testService(t, stub)
	cfg.OCR.FrameInterval = 1.0

	asset := testAsset(time.Hour,
		ffprobe.SubtitleStream{Index: 0, Codec: "subrip", Kind: ffprobe.KindEmbeddedText, Language: "en"},
	)
	tracks, errs := svc.ExtractAll(context.Background(), asset, ExtractOptions{ForceOCR: true, OCR: OCROptions{Language: "en"}})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if stub.ocrCalls != 0 {
		t.Errorf("recognition ran %d times for an already covered language", stub.ocrCalls)
	}
	if tracks["en"].Origin != OriginEmbedded {
		t.Errorf("Origin = %s, want embedded", tracks["en"].Origin)
	}
}

func TestExtractAllForcedOCRAddsUncoveredLanguage(t *testing.T) {
	stub := &stubTools{t: t, ffmpegSRT: sampleSRT, ocrTexts: []string{"한국어 자막", "한국어 자막"}}
	svc, cfg := testService(t, stub)
	cfg.OCR.FrameInterval = 1.0
	cfg.OCR.MinCharacters = 2
	cfg.OCR.MinAlnumRatio = 0.5

	asset := testAsset(2*time.Second,
		ffprobe.SubtitleStream{Index: 0, Codec: "subrip", Kind: ffprobe.KindEmbeddedText, Language: "en"},
	)
	tracks, errs := svc.ExtractAll(context.Background(), asset, ExtractOptions{ForceOCR: true, OCR: OCROptions{Language: "ko"}})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tracks["en"].Origin != OriginEmbedded {
		t.Errorf("en Origin = %s, want embedded", tracks["en"].Origin)
	}
	ko, ok := tracks["ko"]
	if !ok {
		t.Fatalf("missing ko track from forced recognition")
	}
	if ko.Origin != OriginOCR {
		t.Errorf("ko Origin = %s, want ocr", ko.Origin)
	}
}

func TestExtractAllSkipsBitmapStreams(t *testing.T) {
	stub := &stubTools{t: t}
	svc, cfg := testService(t, stub)
	cfg.OCR.Enabled = false

	asset := testAsset(time.Hour,
		ffprobe.SubtitleStream{Index: 0, Codec: "hdmv_pgs_subtitle", Kind: ffprobe.KindEmbeddedImage, Language: "en"},
	)
	tracks, errs := svc.ExtractAll(context.Background(), asset, ExtractOptions{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(tracks) != 0 {
		t.Errorf("bitmap streams should not produce tracks, got %v", tracks)
	}
	if len(stub.runCalls) != 0 {
		t.Errorf("no commands should run, got %v", stub.runCalls)
	}
}

func TestExtractAllCollectsStrategyFailures(t *testing.T) {
	stub := &stubTools{t: t, runErr: errors.New("broken stream")}
	svc, cfg := testService(t, stub)
	cfg.OCR.Enabled = false

	asset := testAsset(time.Hour,
		ffprobe.SubtitleStream{Index: 0, Codec: "subrip", Kind: ffprobe.KindEmbeddedText, Language: "en"},
	)
	tracks, errs := svc.ExtractAll(context.Background(), asset, ExtractOptions{})
	if len(tracks) != 0 {
		t.Errorf("failed extraction should yield no tracks, got %v", tracks)
	}
	if len(errs) != 1 {
		t.Fatalf("expected one collected error, got %v", errs)
	}
	if !errors.Is(errs[0], services.ErrExternalTool) {
		t.Errorf("error = %v, want external tool failure", errs[0])
	}
}

func TestExtractAllNilAsset(t *testing.T) {
	stub := &stubTools{t: t}
	svc, _ := testService(t, stub)
	tracks, errs := svc.ExtractAll(context.Background(), nil, ExtractOptions{})
	if len(tracks) != 0 || len(errs) != 1 {
		t.Fatalf("tracks = %v, errs = %v", tracks, errs)
	}
	if !errors.Is(errs[0], services.ErrValidation) {
		t.Errorf("error = %v, want validation failure", errs[0])
	}
}
