package preflight

import (
	"os"
	"path/filepath"
	"strings"

	"subocr/internal/config"
)

// CheckTessdata reports where tesseract looks for trained data. It is
// informational: tesseract falls back to its compiled-in path when
// TESSDATA_PREFIX is unset.
func CheckTessdata() Result {
	const name = "Tessdata"

	prefix := strings.TrimSpace(os.Getenv("TESSDATA_PREFIX"))
	if prefix == "" {
		return Result{Name: name, Passed: true, Detail: "TESSDATA_PREFIX unset (tesseract default)"}
	}
	if _, err := os.Stat(prefix); err != nil {
		return Result{Name: name, Detail: prefix + " (error: does not exist)"}
	}
	matches, _ := filepath.Glob(filepath.Join(prefix, "*.traineddata"))
	if len(matches) == 0 {
		// Some layouts keep models one level down.
		matches, _ = filepath.Glob(filepath.Join(prefix, "tessdata", "*.traineddata"))
	}
	if len(matches) == 0 {
		return Result{Name: name, Detail: prefix + " (no .traineddata files)"}
	}
	return Result{Name: name, Passed: true, Detail: prefix}
}

// CheckHistory reports whether the run ledger is enabled and where it lives.
func CheckHistory(cfg *config.Config) Result {
	const name = "History"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.History.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	dir := filepath.Dir(cfg.History.Path)
	check := CheckDirectoryAccess(name, dir)
	if !check.Passed {
		return check
	}
	return Result{Name: name, Passed: true, Detail: cfg.History.Path}
}
