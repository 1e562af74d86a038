package ffprobe

import (
	"strings"

	"sublift/internal/language"
)

// SubtitleKind classifies how a subtitle stream can be extracted.
type SubtitleKind string

const (
	// KindEmbeddedText marks text-based streams convertible straight to SRT.
	KindEmbeddedText SubtitleKind = "embedded-text"
	// KindEmbeddedImage marks bitmap streams (PGS, VobSub) that cannot be
	// converted to text without OCR.
	KindEmbeddedImage SubtitleKind = "embedded-image"
	// KindClosedCaption marks EIA/CEA caption data carried in the video stream.
	KindClosedCaption SubtitleKind = "closed-caption"
)

// SubtitleStream describes one subtitle stream located by the prober.
type SubtitleStream struct {
	// Index is subtitle-relative (ffmpeg's 0:s:N addressing), not the
	// container-wide stream index.
	Index int
	// ContainerIndex is the absolute stream index within the container.
	ContainerIndex int
	Codec          string
	Kind           SubtitleKind
	// Language is the declared ISO 639-1 tag. Declared tags may be absent or
	// wrong; empty means undeclared.
	Language string
	Forced   bool
}

var codecKinds = map[string]SubtitleKind{
	"subrip":           KindEmbeddedText,
	"srt":              KindEmbeddedText,
	"ass":              KindEmbeddedText,
	"ssa":              KindEmbeddedText,
	"mov_text":         KindEmbeddedText,
	"webvtt":           KindEmbeddedText,
	"text":             KindEmbeddedText,
	"hdmv_pgs_subtitle": KindEmbeddedImage,
	"dvd_subtitle":      KindEmbeddedImage,
	"dvb_subtitle":      KindEmbeddedImage,
	"xsub":              KindEmbeddedImage,
	"eia_608":           KindClosedCaption,
	"eia_708":           KindClosedCaption,
	"cea_608":           KindClosedCaption,
	"cea_708":           KindClosedCaption,
}

// KindForCodec maps an ffprobe codec name to a subtitle kind. Unknown codecs
// default to embedded-text so extraction is attempted rather than silently
// skipped.
func KindForCodec(codec string) SubtitleKind {
	if kind, ok := codecKinds[strings.ToLower(strings.TrimSpace(codec))]; ok {
		return kind
	}
	return KindEmbeddedText
}

// SubtitleStreams returns the subtitle streams in container order with
// subtitle-relative indexes assigned.
func (r Result) SubtitleStreams() []SubtitleStream {
	var subs []SubtitleStream
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "subtitle") {
			continue
		}
		lang := ""
		if tag := language.ExtractFromTags(stream.Tags); tag != "" {
			lang = language.ToISO2(tag)
		}
		subs = append(subs, SubtitleStream{
			Index:          len(subs),
			ContainerIndex: stream.Index,
			Codec:          strings.ToLower(strings.TrimSpace(stream.CodecName)),
			Kind:           KindForCodec(stream.CodecName),
			Language:       lang,
			Forced:         stream.Disposition.Forced != 0,
		})
	}
	return subs
}
