package logging

import (
	"context"
	"log/slog"

	"sublift/internal/services"
)

// Structured logging keys shared across the pipeline. Code references these
// constants rather than bare strings so renames stay mechanical.
const (
	FieldComponent     = "component"
	FieldVideo         = "video"
	FieldStage         = "stage"
	FieldLanguage      = "language"
	FieldCorrelationID = "correlation_id"
	// FieldEventType categorizes warnings and errors for downstream filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator-facing next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact names the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType categorizes decision logs (strategy selection,
	// merge winners); DecisionAttrs pairs it with the result and reason keys.
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

// ContextFields extracts the standard attributes carried by ctx: the video
// being processed, the active stage, and the batch correlation id.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if video, ok := services.VideoFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldVideo, video))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext augments logger with the attributes ContextFields finds in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
