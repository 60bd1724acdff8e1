//go:build !gosseract

package tesseract

import (
	"context"

	"subocr/internal/services"
)

// Engine is unavailable in builds without the gosseract tag.
type Engine struct{}

// New reports that the library engine was not compiled in.
func New(int) (*Engine, error) {
	return nil, errUnavailable()
}

// Languages always fails in this build.
func (e *Engine) Languages(context.Context) ([]string, error) {
	return nil, errUnavailable()
}

// Recognize always fails in this build.
func (e *Engine) Recognize(context.Context, string, string) (string, error) {
	return "", errUnavailable()
}

func errUnavailable() error {
	return services.Wrap(services.ErrConfiguration, "ocr", "init", "library engine requires a build with -tags gosseract (use ocr.engine = \"cli\")", nil)
}
