package language

import "strings"

// lang describes one language the pipeline can name: the display name, the
// ISO 639-1 code, the ISO 639-2 form(s) (terminology first, bibliographic
// second where the standard has both), the tesseract traineddata override,
// and the word forms metadata providers return. Multi-valued fields are
// space separated to keep the catalog readable.
type lang struct {
	name    string
	iso2    string
	iso3    string
	ocr     string
	aliases string
}

var catalog = []lang{
	{"English", "en", "eng", "", "english"},
	{"Spanish", "es", "spa", "", "spanish castilian"},
	{"French", "fr", "fra fre", "", "french"},
	{"German", "de", "deu ger", "", "german"},
	{"Italian", "it", "ita", "", "italian"},
	{"Portuguese", "pt", "por", "", "portuguese"},
	{"Japanese", "ja", "jpn", "", "japanese"},
	{"Korean", "ko", "kor", "", "korean"},
	{"Chinese", "zh", "zho chi", "chi_sim", "chinese mandarin cantonese"},
	{"Russian", "ru", "rus", "", "russian"},
	{"Arabic", "ar", "ara", "", "arabic"},
	{"Hindi", "hi", "hin", "", "hindi"},
	{"Dutch", "nl", "nld dut", "", "dutch flemish"},
	{"Polish", "pl", "pol", "", "polish"},
	{"Swedish", "sv", "swe", "", "swedish"},
	{"Danish", "da", "dan", "", "danish"},
	{"Norwegian", "no", "nor", "", "norwegian"},
	{"Finnish", "fi", "fin", "", "finnish"},
	{"Thai", "th", "tha", "", "thai"},
	{"Turkish", "tr", "tur", "", "turkish"},
	{"Vietnamese", "vi", "vie", "", "vietnamese"},
	{"Czech", "cs", "ces cze", "", "czech"},
	{"Greek", "el", "ell gre", "", "greek"},
	{"Hebrew", "he", "heb", "", "hebrew"},
	{"Hungarian", "hu", "hun", "", "hungarian"},
	{"Indonesian", "id", "ind", "", "indonesian"},
	{"Ukrainian", "uk", "ukr", "", "ukrainian"},
	{"Romanian", "ro", "ron rum", "", "romanian"},
}

// index keys every code form and alias to its catalog row.
var index = func() map[string]*lang {
	m := make(map[string]*lang, len(catalog)*4)
	for i := range catalog {
		l := &catalog[i]
		m[l.iso2] = l
		for _, code := range strings.Fields(l.iso3) {
			m[code] = l
		}
		for _, alias := range strings.Fields(l.aliases) {
			m[alias] = l
		}
	}
	return m
}()

func (l *lang) primaryISO3() string {
	primary, _, _ := strings.Cut(l.iso3, " ")
	return primary
}

func clean(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// ToISO2 maps any recognized code or word form to ISO 639-1. Two-letter
// input passes through even when unrecognized so private-use codes survive;
// any other unrecognized input maps to empty.
func ToISO2(code string) string {
	code = clean(code)
	switch l := index[code]; {
	case l != nil:
		return l.iso2
	case len(code) == 2:
		return code
	default:
		return ""
	}
}

// ToISO3 maps any recognized code to its ISO 639-2 terminology form.
// Unrecognized three-letter input passes through; everything else
// unrecognized maps to "und".
func ToISO3(code string) string {
	code = clean(code)
	switch l := index[code]; {
	case l != nil:
		return l.primaryISO3()
	case len(code) == 3:
		return code
	default:
		return "und"
	}
}

// Resolve maps a provider-supplied language name or code to ISO 639-1 and
// reports whether the vocabulary recognized it. Unrecognized names pass
// through lowercased so callers can keep them (and log the miss) instead of
// dropping the track.
func Resolve(name string) (string, bool) {
	cleaned := clean(name)
	if cleaned == "" {
		return "", false
	}
	if l := index[cleaned]; l != nil {
		return l.iso2, true
	}
	return cleaned, false
}

// DisplayName returns a human-readable language name for any recognized
// code, "Unknown" for empty input, and the uppercased code otherwise.
func DisplayName(code string) string {
	cleaned := clean(code)
	if cleaned == "" {
		return "Unknown"
	}
	if l := index[cleaned]; l != nil {
		return l.name
	}
	return strings.ToUpper(cleaned)
}

// TesseractCode returns the tesseract traineddata name for a language.
// Most models are named after the ISO 639-2 code; Chinese uses the
// simplified-script model. Unrecognized input falls back to English data.
func TesseractCode(code string) string {
	l := index[clean(code)]
	if l == nil {
		return "eng"
	}
	if l.ocr != "" {
		return l.ocr
	}
	return l.primaryISO3()
}

// tagKeys lists the stream tag spellings muxers use for language, in
// priority order.
var tagKeys = []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}

// ExtractFromTags pulls the language out of ffprobe stream tags, trimming
// the null padding some muxers leave in fixed-width fields.
func ExtractFromTags(tags map[string]string) string {
	for _, key := range tagKeys {
		value := strings.TrimSpace(strings.ReplaceAll(tags[key], "\x00", ""))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}

// NormalizeList lowercases a list of language codes, converts recognized
// longer forms to ISO 639-1, and deduplicates while preserving order.
func NormalizeList(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, raw := range list {
		code := clean(raw)
		if code == "" {
			continue
		}
		if len(code) > 2 {
			if mapped := ToISO2(code); mapped != "" {
				code = mapped
			}
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
