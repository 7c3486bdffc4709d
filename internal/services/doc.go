// Package services defines shared utilities consumed by the capture pipeline,
// the duplicate resolver, and the daemon loop.
//
// Key responsibilities:
//   - Context helpers that stamp capture IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the capture outcome taxonomy (source, encoder, sink, publication).
//
// Use these helpers when wiring new pipeline steps so failures classify the
// same way in logs, the journal, and CLI output.
package services
