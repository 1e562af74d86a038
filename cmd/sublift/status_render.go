package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"sublift/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var kindStyles = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) style() (label, color string) {
	if k < 0 || int(k) >= len(kindStyles) {
		k = statusInfo
	}
	return kindStyles[k].label, kindStyles[k].color
}

// renderStatusLine formats one "  Label:  [KIND] message" line, padded so
// the status column lines up across a section.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	kindLabel, color := kind.style()
	status := "[" + kindLabel + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status)
	if colorize {
		line = color + line + ansiReset
	}
	return line
}

// resultLine renders a preflight result, marking failures with the given
// severity.
func resultLine(result preflight.Result, failKind statusKind, colorize bool) string {
	kind := failKind
	if result.Passed {
		kind = statusOK
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	head := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(head))
	if !colorize {
		return []string{head, rule}
	}
	return []string{ansiBlue + head + ansiReset, ansiBlue + rule + ansiReset}
}

// shouldColorize enables ANSI colors only when writing to a terminal.
func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd()))
}
