// Package history records extraction runs in a SQLite database.
//
// Each run stores the input path, requested languages, final status, and
// timing; each selected track stores its codec, language, packet and cue
// counts, output path, and error. The CLI reads it for the status and
// history commands.
package history
