package composite

import (
	"image"
	"image/color"

	"subocr/internal/subpic"
)

// cropMargin is the padding kept around the visible bounding box.
const cropMargin = 4

// Bitmap is an OCR-ready 8-bit indexed image: dark text on a light
// background with a grayscale palette.
type Bitmap struct {
	Image *image.Paletted
}

// Width returns the bitmap width in pixels.
func (b *Bitmap) Width() int { return b.Image.Rect.Dx() }

// Height returns the bitmap height in pixels.
func (b *Bitmap) Height() int { return b.Image.Rect.Dy() }

// WorkingPalette resolves the palette an image is rendered with. PGS images
// carry their own palette. VobSub images start from the track's base palette;
// the index remap replaces the RGB of rendering slots 0-3 with the selected
// base colors and the alpha remap replaces their opacity.
func WorkingPalette(img subpic.DecodedImage, base subpic.Palette) subpic.Palette {
	if img.Palette != nil {
		return *img.Palette
	}
	working := base
	if img.IndexRemap != nil {
		for slot, index := range img.IndexRemap {
			src := base[index]
			working[slot].R, working[slot].G, working[slot].B = src.R, src.G, src.B
		}
	}
	if img.AlphaRemap != nil {
		for slot, alpha := range img.AlphaRemap {
			working[slot].A = alpha
		}
	}
	return working
}

// Composite crops img to its visible pixels plus a small margin and renders
// it as inverted luma over a black background. The boolean is false when the
// image has no visible pixel. Callers still emit a blank cue for such an
// image so that it closes the cue before it.
func Composite(img subpic.DecodedImage, base subpic.Palette) (*Bitmap, bool) {
	if img.Empty() {
		return nil, false
	}
	palette := WorkingPalette(img, base)

	box, ok := visibleBounds(img, &palette)
	if !ok {
		return nil, false
	}
	box = image.Rect(
		max(box.Min.X-cropMargin, 0),
		max(box.Min.Y-cropMargin, 0),
		min(box.Max.X+cropMargin, img.Width),
		min(box.Max.Y+cropMargin, img.Height),
	)
	if box.Empty() {
		return nil, false
	}

	out := image.NewPaletted(image.Rect(0, 0, box.Dx(), box.Dy()), grayscale(&palette))
	for y := box.Min.Y; y < box.Max.Y; y++ {
		src := img.Pix[y*img.Width+box.Min.X : y*img.Width+box.Max.X]
		copy(out.Pix[(y-box.Min.Y)*out.Stride:], src)
	}
	return &Bitmap{Image: out}, true
}

// visibleBounds returns the smallest rectangle holding every pixel whose
// working palette alpha is non-zero.
func visibleBounds(img subpic.DecodedImage, palette *subpic.Palette) (image.Rectangle, bool) {
	x0, y0 := img.Width, img.Height
	x1, y1 := -1, -1
	for y := 0; y < img.Height; y++ {
		row := img.Pix[y*img.Width : (y+1)*img.Width]
		for x, index := range row {
			if palette[index].A == 0 {
				continue
			}
			x0, y0 = min(x0, x), min(y0, y)
			x1, y1 = max(x1, x), max(y1, y)
		}
	}
	if x1 < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x0, y0, x1+1, y1+1), true
}

// grayscale flattens each entry onto black, takes its luma, and inverts it so
// that bright text becomes dark ink on a light page.
func grayscale(palette *subpic.Palette) color.Palette {
	out := make(color.Palette, len(palette))
	for i, c := range palette {
		r, g, b := int(c.R), int(c.G), int(c.B)
		if c.A != 0xFF {
			a := int(c.A)
			r, g, b = r*a/255, g*a/255, b*a/255
		}
		luma := (3*r + 6*g + b) / 10
		v := uint8(255 - luma)
		out[i] = color.RGBA{R: v, G: v, B: v, A: 0xFF}
	}
	return out
}
