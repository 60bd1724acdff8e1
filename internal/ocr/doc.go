// Package ocr wraps the Tesseract OCR engine.
//
// Two engines implement Engine: CLIEngine runs the tesseract program per
// image, and the tesseract subpackage links libtesseract through gosseract
// when built with the gosseract tag. Postprocess and SplitLines turn raw
// recognizer output into cue lines.
package ocr
