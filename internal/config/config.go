package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// OCR contains configuration for the text recognition engine.
type OCR struct {
	// Engine selects the recognizer: "cli" shells out to the tesseract binary,
	// "library" links libtesseract (requires the gosseract build tag).
	Engine          string `toml:"engine"`
	TesseractBinary string `toml:"tesseract_binary"`
	PSM             int    `toml:"psm"`
	OEM             int    `toml:"oem"`
	// Languages optionally restricts and orders the languages to extract. When
	// empty every language the engine reports is tried in engine order.
	Languages   []string `toml:"languages"`
	Postprocess bool     `toml:"postprocess"`
}

// FFmpeg contains configuration for the demuxer and prober binaries.
type FFmpeg struct {
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	FFprobeBinary       string `toml:"ffprobe_binary"`
	DemuxTimeoutSeconds int    `toml:"demux_timeout_seconds"`
}

// PGS contains configuration for Blu-ray subtitle decoding.
type PGS struct {
	ColorMatrix string `toml:"color_matrix"`
}

// Extract contains configuration for track selection and run housekeeping.
type Extract struct {
	MinFrameDensity float64 `toml:"min_frame_density"`
	KeepWorkDir     bool    `toml:"keep_work_dir"`
	StaleWorkHours  int     `toml:"stale_work_hours"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subocr.
//
// Configuration sections by subsystem:
//   - Paths: work and log directories
//   - OCR: recognizer engine, tesseract tuning, language priority
//   - FFmpeg: demuxer/prober binaries
//   - PGS: Blu-ray palette color matrix
//   - Extract: track selection thresholds and work dir housekeeping
//   - History: sqlite run ledger
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	OCR     OCR     `toml:"ocr"`
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
	PGS     PGS     `toml:"pgs"`
	Extract Extract `toml:"extract"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subocr.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && c.History.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for demuxing.
func (c *Config) FFmpegBinary() string {
	return c.FFmpeg.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for track discovery.
func (c *Config) FFprobeBinary() string {
	return c.FFmpeg.FFprobeBinary
}

// TesseractBinary returns the tesseract executable used by the CLI OCR engine.
func (c *Config) TesseractBinary() string {
	return c.OCR.TesseractBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
