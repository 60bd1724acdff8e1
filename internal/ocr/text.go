package ocr

import "strings"

// dvdReplacements fixes glyphs tesseract commonly misreads in DVD subtitle
// fonts. They apply in order, so "=-" collapses to a single dash.
var dvdReplacements = [][2]string{
	{"|", "I"},
	{"=", "-"},
	{"~", "-"},
	{"«", "-"},
	{"{", "("},
	{"}", ")"},
	{"»", "-"},
	{"--", "-"},
}

// Postprocess applies the DVD subtitle glyph corrections to raw OCR text.
func Postprocess(text string) string {
	for _, r := range dvdReplacements {
		text = strings.ReplaceAll(text, r[0], r[1])
	}
	return text
}

// SplitLines splits text on CRLF or LF, trims trailing whitespace and the
// page separator tesseract appends, and drops lines left empty.
func SplitLines(text string) []string {
	var lines []string
	for _, part := range strings.Split(text, "\r\n") {
		for _, line := range strings.Split(part, "\n") {
			line = strings.TrimRight(line, " \t\r\f")
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}
