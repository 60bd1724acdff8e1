package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
)

// FileStem returns the base name of path without its extension, unchanged
// otherwise. A name that is only an extension, such as ".mkv", is kept whole.
func FileStem(path string) string {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = name
	}
	return stem
}

// SanitizeToken lowercases value and keeps ASCII letters, digits, hyphens and
// underscores; anything else becomes an underscore. Language codes end up in
// output file names through this. Returns "unknown" when nothing survives.
func SanitizeToken(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	if out := strings.Trim(b.String(), "_-"); out != "" {
		return out
	}
	return "unknown"
}
