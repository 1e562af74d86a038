// Package subtitles extracts subtitle tracks from video files.
//
// Three strategies feed a per-language track map: embedded text streams are
// converted with ffmpeg, closed-caption data is pulled with ccextractor, and
// burned-in subtitles are recovered by sampling frames through tesseract.
// When strategies disagree about a language, the more trusted origin wins and
// cue count breaks ties. Individual strategy failures degrade into warnings
// so one broken stream never sinks the whole pass.
package subtitles
