// Package language normalizes language codes across container tags (ISO
// 639-2, sometimes bibliographic), tesseract model names ("eng", "chi_sim"),
// and user input, and renders display names.
package language
