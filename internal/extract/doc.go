// Package extract turns the bitmap subtitle tracks of a media file into
// WebVTT files by running each packet through decode, composite, and OCR.
//
// A run proceeds as:
//   - resolve the recognition languages (configured list intersected with
//     what the OCR engine has installed, in priority order),
//   - probe the input and select at most one track per language,
//   - demux each selected track into per-packet files,
//   - decode, composite, and recognize every packet,
//   - reconcile cue timing and write <base>.sub.<lang>.vtt.
//
// Each run owns an ExtractionRun: a uuid, a scratch directory under
// paths.work_dir, and an advisory lock on the input. A malformed packet
// fails only its track; the run continues with the remaining tracks.
package extract
