package composite

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/image/bmp"
)

// WriteBMP encodes the bitmap as an 8-bit indexed BMP. Palette entries are
// stored in blue, green, red order.
func (b *Bitmap) WriteBMP(w io.Writer) error {
	if err := bmp.Encode(w, b.Image); err != nil {
		return fmt.Errorf("encode bmp: %w", err)
	}
	return nil
}

// WriteFile writes the bitmap to path as a BMP file.
func (b *Bitmap) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bitmap file: %w", err)
	}
	if err := b.WriteBMP(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
