package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subocr/internal/config"
	"subocr/internal/testsupport"
)

type cliEnv struct {
	baseDir    string
	configPath string
	workDir    string
	logDir     string
	binDir     string
}

type cliEnvOption func(*cliEnv, *strings.Builder)

func withHistoryDisabled() cliEnvOption {
	return func(_ *cliEnv, extra *strings.Builder) {
		extra.WriteString("\n[history]\nenabled = false\n")
	}
}

func setupCLIEnv(t *testing.T, opts ...cliEnvOption) *cliEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		workDir:    filepath.Join(base, "work"),
		logDir:     filepath.Join(base, "logs"),
		binDir:     filepath.Join(base, "bin"),
	}
	t.Setenv("HOME", filepath.Join(base, "home"))

	var extra strings.Builder
	for _, opt := range opts {
		opt(env, &extra)
	}
	if !strings.Contains(extra.String(), "[history]") {
		fmt.Fprintf(&extra, "\n[history]\npath = %q\n", filepath.Join(env.logDir, "history.db"))
	}

	testsupport.WriteScript(t, env.binDir, "ffmpeg", "exit 0\n")
	testsupport.WriteScript(t, env.binDir, "ffprobe", "exit 1\n")
	testsupport.WriteScript(t, env.binDir, "tesseract", "echo 'List of available languages in \"/usr/share/tessdata/\" (2):'\necho eng\necho fra\n")

	content := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q

[ocr]
tesseract_binary = %q

[ffmpeg]
ffmpeg_binary = %q
ffprobe_binary = %q

[logging]
level = "error"
%s`,
		env.workDir, env.logDir,
		filepath.Join(env.binDir, "tesseract"),
		filepath.Join(env.binDir, "ffmpeg"),
		filepath.Join(env.binDir, "ffprobe"),
		extra.String(),
	)
	testsupport.WriteFile(t, env.configPath, []byte(content))
	return env
}

// loadConfig returns the config the CLI will see for env.
func (e *cliEnv) loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, _, _, err := config.Load(e.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// writeFFprobe replaces the ffprobe stub with one printing payload.
func (e *cliEnv) writeFFprobe(t *testing.T, payload string) {
	t.Helper()
	testsupport.WriteScript(t, e.binDir, "ffprobe", "cat <<'JSON'\n"+payload+"\nJSON\n")
}

func runCLI(t *testing.T, env *cliEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	full := args
	if env != nil {
		full = append([]string{"--config", env.configPath}, args...)
	}
	cmd.SetArgs(full)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n---\n%s", needle, haystack)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
