package subtitles

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSRT decodes SRT data into cues. Index lines are optional and
// ignored; blocks with malformed timing are skipped. An input that yields
// no cues at all returns an error so callers can flag the stream.
func ParseSRT(data []byte) ([]Cue, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("srt parse: empty input")
	}

	var cues []Cue
	for _, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		timingIdx := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timingIdx = i
				break
			}
		}
		if timingIdx < 0 || timingIdx == len(lines)-1 {
			continue
		}
		start, end, err := parseTimingLine(lines[timingIdx])
		if err != nil {
			continue
		}
		text := NormalizeCueText(strings.Join(lines[timingIdx+1:], "\n"))
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}
	if len(cues) == 0 {
		return nil, errors.New("srt parse: no valid cues")
	}
	return cues, nil
}

// RenderSRT encodes cues as SRT with 1-based sequential indexes.
func RenderSRT(cues []Cue) []byte {
	var builder strings.Builder
	for i, cue := range cues {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(strconv.Itoa(i + 1))
		builder.WriteString("\n")
		builder.WriteString(formatTimestamp(cue.Start))
		builder.WriteString(" --> ")
		builder.WriteString(formatTimestamp(cue.End))
		builder.WriteString("\n")
		builder.WriteString(cue.Text)
		builder.WriteString("\n")
	}
	return []byte(builder.String())
}

func parseTimingLine(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("srt parse: invalid timing line %q", line)
	}
	start, err := parseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Positioning hints may trail the end timestamp; keep the first token.
	endText := strings.TrimSpace(parts[1])
	if idx := strings.IndexByte(endText, ' '); idx > 0 {
		endText = endText[:idx]
	}
	end, err := parseTimestamp(endText)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("srt parse: end before start in %q", line)
	}
	return start, end, nil
}

func parseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("srt parse: empty timestamp")
	}
	// SRT uses a comma before milliseconds; tolerate a period.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("srt parse: invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("srt parse: invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("srt parse: invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || millis < 0 || millis > 999 {
		return 0, fmt.Errorf("srt parse: timestamp out of range %q", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	millis := d.Milliseconds()
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	seconds := millis / 1000
	millis -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
