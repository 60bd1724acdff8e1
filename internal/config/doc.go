// Package config loads, normalizes, and validates subocr configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUBOCR_TESSERACT and SUBOCR_FFMPEG. Always obtain settings through this
// package so downstream code receives sanitized paths and clear validation
// errors.
package config
