//go:build gosseract

package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"subocr/internal/services"
)

// Engine recognizes text through libtesseract, one client per image.
type Engine struct {
	psm           gosseract.PageSegMode
	clientFactory func() *gosseract.Client
	languages     func() ([]string, error)
}

// New constructs a libtesseract-backed engine using the given page
// segmentation mode. The engine mode is fixed by the installed models.
func New(psm int) (*Engine, error) {
	return &Engine{
		psm:           gosseract.PageSegMode(psm),
		clientFactory: gosseract.NewClient,
		languages:     gosseract.GetAvailableLanguages,
	}, nil
}

// Languages lists the trained data files tesseract can load.
func (e *Engine) Languages(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	langs, err := e.languages()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ocr", "list languages", "libtesseract language lookup failed", err)
	}
	return langs, nil
}

// Recognize returns the text tesseract finds in the image at path.
func (e *Engine) Recognize(ctx context.Context, path, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := c.SetPageSegMode(e.psm); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetImage(path); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "ocr", "recognize", fmt.Sprintf("libtesseract failed on %s", path), err)
	}
	return text, nil
}
