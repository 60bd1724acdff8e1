// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - SubtitleTrack: a subtitle stream with its palette text, time base,
//     duration, and event count resolved
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods on Result provide stream counts, duration parsing, bitrate
// extraction, and SubtitleTracks.
package ffprobe
