// Package pgs decodes Blu-ray presentation graphic stream (PGS) display sets.
//
// A display set is a sequence of typed, length-prefixed segments: palette
// definitions in Y'CbCr with alpha, object bitmaps in byte-oriented
// run-length encoding (possibly split over several fragments), a
// presentation composition that places objects, window definitions, and a
// terminating end segment. The decoder composes the presented objects onto
// one indexed image and converts the palette to RGBA.
package pgs
