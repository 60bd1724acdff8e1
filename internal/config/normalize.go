package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOCR()
	c.normalizeFFmpeg()
	c.PGS.ColorMatrix = strings.ToLower(strings.TrimSpace(c.PGS.ColorMatrix))
	if c.PGS.ColorMatrix == "" {
		c.PGS.ColorMatrix = defaultColorMatrix
	}
	if c.Extract.MinFrameDensity == 0 {
		c.Extract.MinFrameDensity = DefaultMinFrameDensity
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOCR() {
	c.OCR.Engine = strings.ToLower(strings.TrimSpace(c.OCR.Engine))
	if c.OCR.Engine == "" {
		c.OCR.Engine = defaultOCREngine
	}
	c.OCR.TesseractBinary = strings.TrimSpace(c.OCR.TesseractBinary)
	if value, ok := os.LookupEnv("SUBOCR_TESSERACT"); ok && strings.TrimSpace(value) != "" {
		c.OCR.TesseractBinary = strings.TrimSpace(value)
	}
	if c.OCR.TesseractBinary == "" {
		c.OCR.TesseractBinary = defaultTesseract
	}
	languages := make([]string, 0, len(c.OCR.Languages))
	seen := make(map[string]struct{}, len(c.OCR.Languages))
	for _, lang := range c.OCR.Languages {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		languages = append(languages, lang)
	}
	c.OCR.Languages = languages
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if value, ok := os.LookupEnv("SUBOCR_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.FFmpegBinary = strings.TrimSpace(value)
	}
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpeg
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if value, ok := os.LookupEnv("SUBOCR_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.FFprobeBinary = strings.TrimSpace(value)
	}
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobe
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.LogDir, defaultHistoryFile)
		return nil
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
