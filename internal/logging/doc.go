// Package logging assembles structured slog loggers and formatting helpers used
// across worklist.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so store and service code can
// tag log lines with partition keys, workitem UIDs and correlation IDs.
// Attributes carrying patient identifiers are redacted before they reach any
// writer. A no-op logger is provided for tests and wiring code that cannot fail.
package logging
