package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for error classification. Every pipeline error is tagged
// with one of these through Wrap so callers can branch on errors.Is without
// parsing message text.
var (
	// ErrToolMissing marks failures caused by a required external binary that
	// could not be found on the execution path. Distinct from ErrExternalTool
	// so callers can surface an actionable install hint.
	ErrToolMissing   = errors.New("external tool missing")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap tags err with marker and prefixes component/operation/message
// context. A nil marker falls back to ErrTransient; a nil err yields a
// tagged error carrying only the context.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinDetail(component, operation, message)
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// Label maps a wrapped error to a short classification token used in reports
// and structured logs.
func Label(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrToolMissing):
		return "tool_missing"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "failure"
	}
}

// Degradable reports whether the error should degrade the surrounding video
// run into a partial result instead of failing it. Only input problems the
// caller must fix (validation and configuration failures tagged as such at
// pipeline entry) are treated as fatal per video.
func Degradable(err error) bool {
	if err == nil {
		return true
	}
	return !errors.Is(err, ErrValidation) && !errors.Is(err, ErrConfiguration)
}

func joinDetail(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			parts = append(parts, field)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
