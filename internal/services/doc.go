// Package services defines shared utilities consumed by the batch pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and recording identity
//     for logging.
//   - Structured error markers plus the Wrap helper that translate per-file
//     failures into recorded outcomes (processed, empty, skipped).
//
// Subpackages wrap external tools behind testable executors.
package services
