// Package services defines shared utilities consumed by the extraction
// pipeline and its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, track indexes, stage names, and
//     languages for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent history statuses (failed vs rejected).
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform.
package services
