package extract

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"subocr/internal/textutil"
)

// WriteWebVTT renders cues as WebVTT. The header carries the language and
// cue count as inline JSON; lines end in CRLF.
func WriteWebVTT(w io.Writer, lang string, cues []Cue) error {
	if _, err := fmt.Fprintf(w, "WEBVTT { \"language\": %q, \"count\": %d }\r\n\r\n", lang, len(cues)); err != nil {
		return err
	}
	for _, cue := range cues {
		if _, err := fmt.Fprintf(w, "%s --> %s\r\n%s\r\n\r\n",
			Timecode(cue.Start), Timecode(cue.End), strings.Join(cue.Lines, "\r\n")); err != nil {
			return err
		}
	}
	return nil
}

// Timecode formats milliseconds as HH:MM:SS.mmm. Negative values clamp to zero.
func Timecode(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// OutputPath returns <dir>/<base>.sub.<lang>.vtt for input, where base is the
// input file name without its extension. An empty dir means beside the input.
func OutputPath(input, dir, lang string) string {
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, fmt.Sprintf("%s.sub.%s.vtt", textutil.FileStem(input), textutil.SanitizeToken(lang)))
}
