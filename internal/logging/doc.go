// Package logging assembles structured slog loggers used across xia2pipe.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so sweep code automatically tags log lines
// with the work item, stage, and sweep correlation ID. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
