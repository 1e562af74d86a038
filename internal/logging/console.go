package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one-line human-readable records:
//
//	2026-01-02T15:04:05Z INFO subtitles: extraction complete cues=42
//
// The component attribute is folded into the message prefix instead of being
// printed as a field.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Leveler
	attrs     []slog.Attr
	prefix    string
	addSource bool
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{
		mu:        &sync.Mutex{},
		out:       w,
		level:     level,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, attr := range attrs {
		// Bake the open group into the key now so later groups do not
		// retroactively re-prefix earlier attrs.
		if h.prefix != "" && attr.Key != "" {
			attr.Key = h.prefix + "." + attr.Key
		}
		next.attrs = append(next.attrs, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if next.prefix == "" {
		next.prefix = name
	} else {
		next.prefix = next.prefix + "." + name
	}
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	line := consoleLine{buf: make([]byte, 0, 160)}
	for _, attr := range h.attrs {
		line.addAttr("", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		line.addAttr(h.prefix, attr)
		return true
	})

	head := make([]byte, 0, 64)
	head = ts.UTC().AppendFormat(head, time.RFC3339)
	head = append(head, ' ')
	head = append(head, levelTag(record.Level)...)
	head = append(head, ' ')
	if line.component != "" {
		head = append(head, line.component...)
		head = append(head, ": "...)
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		head = append(head, msg...)
	} else {
		head = append(head, "(no message)"...)
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			head = append(head, " ["...)
			head = append(head, filepath.Base(src.File)...)
			head = append(head, ':')
			head = strconv.AppendInt(head, int64(src.Line), 10)
			head = append(head, ']')
		}
	}

	out := append(head, line.buf...)
	out = append(out, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(out)
	return err
}

// consoleLine accumulates rendered key=value fields, pulling the component
// field out for the message prefix.
type consoleLine struct {
	buf       []byte
	component string
}

func (l *consoleLine) addAttr(prefix string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()

	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if value.Kind() == slog.KindGroup {
		for _, member := range value.Group() {
			l.addAttr(key, member)
		}
		return
	}
	if key == "" {
		return
	}
	if key == FieldComponent && l.component == "" {
		l.component = plainString(value)
		return
	}

	l.buf = append(l.buf, ' ')
	l.buf = append(l.buf, key...)
	l.buf = append(l.buf, '=')
	l.buf = appendValue(l.buf, value)
}

// plainString renders a value without field quoting, for use in the prefix.
func plainString(v slog.Value) string {
	if v.Kind() == slog.KindString {
		return v.String()
	}
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.String()
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return appendText(buf, v.String())
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().UTC().AppendFormat(buf, time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return appendText(buf, err.Error())
		}
		return appendText(buf, v.String())
	default:
		return appendText(buf, v.String())
	}
}

// appendText writes s, quoting it when it is empty or contains characters
// that would break the key=value structure.
func appendText(buf []byte, s string) []byte {
	if needsQuoting(s) {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
