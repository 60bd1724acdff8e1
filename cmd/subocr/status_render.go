package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"subocr/internal/deps"
	"subocr/internal/preflight"
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

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// dependencyLines renders a summary line followed by one line per binary and,
// when required binaries are missing, a closing list of their names.
func dependencyLines(statuses []deps.Status, colorize bool) []string {
	var missing []string
	lines := make([]string, 0, len(statuses)+2)
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}

	switch {
	case len(statuses) == 0:
		lines = append(lines, renderStatusLine("Summary", statusInfo, "No dependencies checked", colorize))
	case len(missing) > 0:
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d of %d required missing", len(missing), requiredCount(statuses)), colorize))
	default:
		lines = append(lines, renderStatusLine("Summary", statusOK, "All required available", colorize))
	}

	for _, status := range statuses {
		lines = append(lines, dependencyLine(status, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, fmt.Sprintf("%sMissing dependencies: %s", statusIndent, strings.Join(missing, ", ")))
	}
	return lines
}

func dependencyLine(status deps.Status, colorize bool) string {
	if status.Available {
		message := "Ready"
		if status.Command != "" {
			message = fmt.Sprintf("Ready (command: %s)", status.Command)
		}
		return renderStatusLine(status.Name, statusOK, message, colorize)
	}
	detail := strings.TrimSpace(status.Detail)
	if detail == "" {
		detail = "not available"
	}
	kind := statusError
	if status.Optional {
		kind = statusWarn
	}
	return renderStatusLine(status.Name, kind, detail, colorize)
}

func requiredCount(statuses []deps.Status) int {
	count := 0
	for _, status := range statuses {
		if !status.Optional {
			count++
		}
	}
	return count
}

func resultLine(result preflight.Result, colorize bool) string {
	kind := statusOK
	if !result.Passed {
		kind = statusError
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
