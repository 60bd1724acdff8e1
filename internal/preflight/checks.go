package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subocr/internal/config"
	"subocr/internal/deps"
	"subocr/internal/language"
)

// LanguageLister reports the recognition languages an OCR engine can load.
type LanguageLister interface {
	Languages(ctx context.Context) ([]string, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries an extraction run needs.
// Both the extract command and the status command use this so the
// requirements list lives in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	requirements := deps.Requirements(
		cfg.FFmpegBinary(),
		deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		cfg.TesseractBinary(),
		cfg.OCR.Engine == config.OCREngineLibrary,
	)
	return deps.CheckBinaries(requirements)
}

// CheckLanguages asks the OCR engine for its languages and reports whether
// every configured language is installed. It uses a 10-second timeout.
func CheckLanguages(ctx context.Context, lister LanguageLister, wanted []string) Result {
	const name = "OCR languages"
	if lister == nil {
		return Result{Name: name, Detail: "engine unavailable"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	available, err := lister.Languages(checkCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "language query timed out"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	if len(available) == 0 {
		return Result{Name: name, Detail: "no languages installed"}
	}

	var missing []string
	for _, want := range wanted {
		found := false
		for _, have := range available {
			if strings.EqualFold(want, have) || language.Match(want, have) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("missing %s (installed: %s)", strings.Join(missing, ", "), strings.Join(available, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(available, ", ")}
}
