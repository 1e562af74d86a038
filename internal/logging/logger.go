package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Options describes logger construction parameters.
type Options struct {
	// Level is the minimum level name ("debug" through "error"); empty or
	// unknown names mean info.
	Level  string
	Format string
	// OutputPaths may name files, "stdout", or "stderr". Every line goes
	// to every sink; an empty list means stdout.
	OutputPaths []string
}

// New constructs a slog logger. Format is "console" (default) or "json".
// The debug level also switches on source locations.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "" && format != "console" && format != "json" {
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := level.Level() <= slog.LevelDebug

	sink, err := openSink(opts.OutputPaths)
	if err != nil {
		return nil, err
	}

	if format == "json" {
		handlerOpts := slog.HandlerOptions{Level: level, AddSource: addSource, ReplaceAttr: renameJSONKeys}
		return slog.New(slog.NewJSONHandler(sink, &handlerOpts)), nil
	}
	return slog.New(newConsoleHandler(sink, level, addSource)), nil
}

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
	"fatal": slog.LevelError,
}

// parseLevel maps a config level name to a slog level; unknown or empty
// names fall back to info.
func parseLevel(name string) slog.Level {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return level
	}
	return slog.LevelInfo
}

// openSink opens every distinct path and fans writes out to all of them.
func openSink(paths []string) (io.Writer, error) {
	var opened []string
	var writers []io.Writer
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || slices.Contains(opened, path) {
			continue
		}
		opened = append(opened, path)

		writer, err := openTarget(path)
		if err != nil {
			return nil, err
		}
		writers = append(writers, writer)
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func openTarget(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// renameJSONKeys shortens the standard slog keys for the JSON handler and
// pins timestamps to UTC.
func renameJSONKeys(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if value := attr.Value; value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Key = "level"
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "msg"
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}
