// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no m4bmerge-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams, chapters and format metadata
//   - Stream: individual audio/video stream properties
//   - Chapter: a chapter marker with start/end seconds and tags
//   - Format: container-level metadata (duration, size, bitrate, tags)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods on Result provide convenient access to stream counts,
// duration parsing, and bitrate extraction.
package ffprobe
