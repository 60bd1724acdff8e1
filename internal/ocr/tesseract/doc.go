// Package tesseract provides an OCR engine backed by libtesseract through
// gosseract. Cgo and the tesseract headers are required, so the engine is
// only compiled with the gosseract build tag; other builds get a stub that
// reports a configuration error.
package tesseract
