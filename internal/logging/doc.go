// Package logging assembles structured slog loggers and formatting helpers used
// across m4bmerge.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline stages can tag log
// lines with the run ID, stage, and file being worked on. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
