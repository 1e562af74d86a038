package logging

import (
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites build structured fields without a
// second import.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error wraps err under the conventional "error" key. A nil err still
// emits the key so related log lines keep one shape.
func Error(err error) Attr {
	value := "<nil>"
	if err != nil {
		value = err.Error()
	}
	return slog.String("error", value)
}

// Args converts attrs into the []any form the slog logging methods take.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags a logger with a component name that the console
// handler folds into the message prefix. A nil base becomes a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	base := logger
	if base == nil {
		base = NewNop()
	}
	return base.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning carrying event_type, error_hint, and
// impact fields, injecting defaults for whichever the caller omitted.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, FieldEventType, eventType)
	attrs = withDefault(attrs, FieldErrorHint, "check logs for details")
	attrs = withDefault(attrs, FieldImpact, "operation completed with warnings")
	logger.Warn(msg, Args(attrs...)...)
}

// withDefault appends a string attr unless attrs already carries key.
func withDefault(attrs []Attr, key, value string) []Attr {
	for _, attr := range attrs {
		if attr.Key == key {
			return attrs
		}
	}
	return append(attrs, String(key, value))
}

// DecisionAttrs builds the field triple every pipeline decision log uses.
func DecisionAttrs(decisionType, result, reason string) []Attr {
	return []Attr{
		String(FieldDecisionType, decisionType),
		String(FieldDecisionResult, result),
		String(FieldDecisionReason, reason),
	}
}
