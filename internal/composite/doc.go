// Package composite turns decoded subtitle images into OCR-ready bitmaps.
//
// Compositing resolves the working palette (base palette plus per-image
// remaps for VobSub, the stream palette for PGS), crops to the visible
// pixels with a small margin, flattens translucent colors onto black, and
// inverts luma so text reads as dark on light. Images with no visible pixel
// are dropped.
package composite
