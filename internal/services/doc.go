// Package services defines shared utilities consumed by the reconciliation,
// submission, and synchronization passes.
//
// Key responsibilities:
//   - Context helpers that stamp work items (sample and run), stage names, and
//     sweep correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's error taxonomy (configuration, lookup, parse,
//     scheduler) so callers can decide between aborting a sweep and skipping a
//     single item.
//
// Use these helpers when wiring new pass logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
