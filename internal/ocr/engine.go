package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"subocr/internal/config"
	"subocr/internal/ocr/tesseract"
	"subocr/internal/services"
)

// Engine recognizes text in a bitmap image file.
type Engine interface {
	// Languages lists the language models the engine can load.
	Languages(ctx context.Context) ([]string, error)
	// Recognize returns the raw recognized text of the image at path.
	Recognize(ctx context.Context, path, language string) (string, error)
}

// NewEngine builds the engine selected by cfg.OCR.Engine.
func NewEngine(cfg *config.Config, logger *slog.Logger) (Engine, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "ocr", "init", "configuration unavailable", nil)
	}
	switch cfg.OCR.Engine {
	case config.OCREngineLibrary:
		engine, err := tesseract.New(cfg.OCR.PSM)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case config.OCREngineCLI, "":
		return NewCLIEngine(cfg.TesseractBinary(), cfg.OCR.PSM, cfg.OCR.OEM, WithLogger(logger)), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "ocr", "init", fmt.Sprintf("unknown ocr engine %q", cfg.OCR.Engine), nil)
	}
}
