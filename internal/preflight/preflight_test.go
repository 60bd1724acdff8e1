package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subocr/internal/config"
	"subocr/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()

	results := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_ReportsMissingWorkDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(t.TempDir(), "missing")
	cfg.Paths.LogDir = ""

	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) != 1 || failed[0].Name != "Work directory" {
		t.Fatalf("expected work directory failure, got %+v", failed)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe"))
	cfg.OCR.TesseractBinary = "clearly-not-present-tesseract"

	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available || !statuses[1].Available {
		t.Fatalf("expected ffmpeg and ffprobe available, got %+v", statuses)
	}
	if statuses[2].Available || statuses[2].Optional {
		t.Fatalf("expected required tesseract missing, got %+v", statuses[2])
	}
}

type fakeLister struct {
	langs []string
	err   error
}

func (f fakeLister) Languages(context.Context) ([]string, error) { return f.langs, f.err }

func TestCheckLanguages(t *testing.T) {
	ctx := context.Background()

	ok := CheckLanguages(ctx, fakeLister{langs: []string{"eng", "fra"}}, []string{"eng", "fre"})
	if !ok.Passed {
		t.Fatalf("expected pass, got %s", ok.Detail)
	}

	missing := CheckLanguages(ctx, fakeLister{langs: []string{"eng"}}, []string{"deu"})
	if missing.Passed || !strings.Contains(missing.Detail, "deu") {
		t.Fatalf("expected missing deu, got %+v", missing)
	}

	failed := CheckLanguages(ctx, fakeLister{err: errors.New("tesseract exploded")}, nil)
	if failed.Passed || !strings.Contains(failed.Detail, "exploded") {
		t.Fatalf("expected engine error, got %+v", failed)
	}

	if CheckLanguages(ctx, fakeLister{}, nil).Passed {
		t.Fatal("expected failure with no languages installed")
	}
}

func TestCheckTessdata(t *testing.T) {
	t.Setenv("TESSDATA_PREFIX", "")
	if !CheckTessdata().Passed {
		t.Fatal("unset prefix should pass")
	}

	dir := t.TempDir()
	t.Setenv("TESSDATA_PREFIX", dir)
	if CheckTessdata().Passed {
		t.Fatal("expected failure without traineddata")
	}
	if err := os.WriteFile(filepath.Join(dir, "eng.traineddata"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !CheckTessdata().Passed {
		t.Fatal("expected pass with traineddata")
	}
}

func TestCheckHistory(t *testing.T) {
	cfg := config.Default()
	cfg.History.Enabled = false
	if r := CheckHistory(&cfg); !r.Passed || r.Detail != "Disabled" {
		t.Fatalf("unexpected disabled result %+v", r)
	}
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	if r := CheckHistory(&cfg); !r.Passed {
		t.Fatalf("expected pass, got %+v", r)
	}
}
