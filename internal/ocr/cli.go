package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"subocr/internal/logging"
	"subocr/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CLIEngine drives the tesseract command-line program, one process per image.
type CLIEngine struct {
	binary string
	psm    int
	oem    int
	run    commandRunner
	logger *slog.Logger
}

// CLIOption customizes a CLIEngine.
type CLIOption func(*CLIEngine)

// WithCommandRunner overrides process execution (used in tests).
func WithCommandRunner(runner commandRunner) CLIOption {
	return func(e *CLIEngine) {
		if runner != nil {
			e.run = runner
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) CLIOption {
	return func(e *CLIEngine) {
		e.logger = logging.NewComponentLogger(logger, "ocr")
	}
}

// NewCLIEngine constructs an engine invoking binary with the given page
// segmentation and engine modes.
func NewCLIEngine(binary string, psm, oem int, opts ...CLIOption) *CLIEngine {
	if strings.TrimSpace(binary) == "" {
		binary = "tesseract"
	}
	e := &CLIEngine{
		binary: binary,
		psm:    psm,
		oem:    oem,
		run:    defaultCommandRunner,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Languages parses `tesseract --list-langs`. The first line is a heading.
func (e *CLIEngine) Languages(ctx context.Context) ([]string, error) {
	out, err := e.run(ctx, e.binary, "--list-langs")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ocr", "list languages", "tesseract --list-langs failed", err)
	}
	lines := SplitLines(string(out))
	if len(lines) <= 1 {
		return nil, nil
	}
	langs := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if lang := strings.TrimSpace(line); lang != "" {
			langs = append(langs, lang)
		}
	}
	return langs, nil
}

// Recognize runs tesseract on one image and returns its standard output.
func (e *CLIEngine) Recognize(ctx context.Context, path, language string) (string, error) {
	args := []string{
		path, "stdout",
		"--psm", strconv.Itoa(e.psm),
		"--oem", strconv.Itoa(e.oem),
		"-l", language,
	}
	out, err := e.run(ctx, e.binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalTool, "ocr", "recognize", fmt.Sprintf("tesseract failed on %s", path), err)
	}
	e.logger.Debug("tesseract recognized image",
		logging.String("image", path),
		logging.String(logging.FieldLanguage, language),
		logging.Int("bytes", len(out)),
	)
	return string(out), nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout bytes.Buffer
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
