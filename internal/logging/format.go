package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Console timestamps carry milliseconds so per-packet OCR lines stay ordered.
const logTimestampLayout = "2006-01-02 15:04:05.000"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// FormatSubject builds the console subject for a log line, for example
// "Run 01234567 · Track #3 eng (ocr)". Run IDs are shortened to eight
// characters.
func FormatSubject(runID, track, language, stage string) string {
	runID = strings.TrimSpace(runID)
	track = strings.TrimSpace(track)
	language = strings.TrimSpace(language)
	stage = strings.TrimSpace(stage)
	if len(runID) > 8 {
		runID = runID[:8]
	}

	parts := make([]string, 0, 2)
	if runID != "" {
		parts = append(parts, "Run "+runID)
	}
	var trackPart string
	if track != "" {
		trackPart = "Track #" + track
		if language != "" {
			trackPart += " " + language
		}
	}
	switch {
	case trackPart != "" && stage != "":
		parts = append(parts, trackPart+" ("+stage+")")
	case trackPart != "":
		parts = append(parts, trackPart)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}

// attrString renders a value for the subject line, unquoted.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}

// formatValue renders a field value, quoting strings with spaces or
// separators. String slices such as language lists are comma-joined.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return quoteIfNeeded(x.Error())
		case []string:
			return quoteIfNeeded(strings.Join(x, ","))
		default:
			return quoteIfNeeded(fmt.Sprint(x))
		}
	default:
		return quoteIfNeeded(v.String())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
