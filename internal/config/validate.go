package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validatePGS(); err != nil {
		return err
	}
	if err := c.validateExtract(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOCR() error {
	switch c.OCR.Engine {
	case OCREngineCLI, OCREngineLibrary:
	default:
		return fmt.Errorf("ocr.engine must be %q or %q (got %q)", OCREngineCLI, OCREngineLibrary, c.OCR.Engine)
	}
	// Tesseract page segmentation modes are 0-13, engine modes 0-3.
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		return fmt.Errorf("ocr.psm must be between 0 and 13 (got %d)", c.OCR.PSM)
	}
	if c.OCR.OEM < 0 || c.OCR.OEM > 3 {
		return fmt.Errorf("ocr.oem must be between 0 and 3 (got %d)", c.OCR.OEM)
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.DemuxTimeoutSeconds < 0 {
		return errors.New("ffmpeg.demux_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validatePGS() error {
	switch c.PGS.ColorMatrix {
	case ColorMatrixBT601, ColorMatrixBT709:
		return nil
	default:
		return fmt.Errorf("pgs.color_matrix must be %q or %q (got %q)", ColorMatrixBT601, ColorMatrixBT709, c.PGS.ColorMatrix)
	}
}

func (c *Config) validateExtract() error {
	if c.Extract.MinFrameDensity < 0 {
		return errors.New("extract.min_frame_density must be positive")
	}
	if c.Extract.StaleWorkHours < 0 {
		return errors.New("extract.stale_work_hours must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
