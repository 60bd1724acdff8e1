// Package vobsub decodes DVD subtitle display packets.
//
// A packet carries a control area (display timing, palette and alpha remaps,
// image extent, and the byte offsets of two interlaced fields) followed by
// nibble run-length encoded bitmap data. Decoding expands both fields and
// interleaves them into a progressive image of 2-bit indexes. ParseIdx reads
// the companion idx text that supplies the stream's 16-color base palette.
package vobsub
