package pgs

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// ColorMatrix selects the Y'CbCr to RGB transform used for palette entries.
// Both matrices assume limited (studio) range input.
type ColorMatrix string

const (
	BT601 ColorMatrix = "bt601"
	BT709 ColorMatrix = "bt709"
)

// ParseColorMatrix accepts "bt601" or "bt709" (case-insensitive). Empty input
// selects BT601.
func ParseColorMatrix(name string) (ColorMatrix, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(BT601):
		return BT601, nil
	case string(BT709):
		return BT709, nil
	default:
		return "", fmt.Errorf("unknown color matrix %q (want %s or %s)", name, BT601, BT709)
	}
}

// RGBA converts one palette entry. Alpha passes through unchanged and is
// straight, not premultiplied.
func (m ColorMatrix) RGBA(y, cr, cb, alpha uint8) color.RGBA {
	yy := 1.164 * (float64(y) - 16)
	r := float64(cr) - 128
	b := float64(cb) - 128
	var red, green, blue float64
	if m == BT709 {
		red = yy + 1.793*r
		green = yy - 0.213*b - 0.533*r
		blue = yy + 2.112*b
	} else {
		red = yy + 1.596*r
		green = yy - 0.813*r - 0.391*b
		blue = yy + 2.018*b
	}
	return color.RGBA{R: clampByte(red), G: clampByte(green), B: clampByte(blue), A: alpha}
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
