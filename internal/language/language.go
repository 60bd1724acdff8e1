package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
	{"cs", "ces", "cze", "Czech", []string{"czech"}},
	{"el", "ell", "gre", "Greek", []string{"greek"}},
	{"he", "heb", "", "Hebrew", []string{"hebrew"}},
	{"hu", "hun", "", "Hungarian", []string{"hungarian"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = clean(code)
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// clean lowercases a code and strips script or region suffixes such as the
// "_sim" of tesseract's "chi_sim" or the "-US" of "en-US".
func clean(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "_-"); i > 0 {
		code = code[:i]
	}
	return code
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	if base, err := xlanguage.ParseBase(clean(code)); err == nil {
		if s := base.String(); len(s) == 2 {
			return s
		}
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Codes unknown to the local table are resolved through the CLDR tables;
// anything still unresolved passes through when it has three letters and
// becomes "und" otherwise.
func ToISO3(code string) string {
	c := clean(code)
	if c == "" {
		return "und"
	}
	if e := lookup(c); e != nil {
		return e.code3
	}
	if base, err := xlanguage.ParseBase(c); err == nil {
		if iso3 := base.ISO3(); iso3 != "" && iso3 != "und" {
			return iso3
		}
	}
	if len(c) == 3 {
		return c
	}
	return "und"
}

// Match reports whether two language codes name the same language, comparing
// them after ISO 639-2 normalization. Undetermined languages never match.
func Match(a, b string) bool {
	ia, ib := ToISO3(a), ToISO3(b)
	return ia != "und" && ia == ib
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if base, err := xlanguage.ParseBase(clean(code)); err == nil {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeList trims, lowercases, and deduplicates language codes while
// preserving order and the original code form.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		trimmed := strings.ToLower(strings.TrimSpace(lang))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
