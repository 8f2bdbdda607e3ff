package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"m4bmerge/internal/audiobook"
)

// Engine probes, re-encodes and concatenates audio files.
type Engine interface {
	Probe(ctx context.Context, path string) (ProbeInfo, error)
	Transcode(ctx context.Context, req TranscodeRequest) error
	Concat(ctx context.Context, req ConcatRequest) error
}

// ProbeInfo is what the merge needs to know about one input file.
type ProbeInfo struct {
	Duration time.Duration
	Codec    audiobook.Codec
	// Bitrate of the audio stream in kbps, 0 when unknown.
	Bitrate  int
	Chapters []audiobook.Chapter
	HasAudio bool
	HasVideo bool
}

// TranscodeRequest re-encodes the audio of Input into Output. Every other
// stream is copied unchanged.
type TranscodeRequest struct {
	Input  string
	Output string
	Target audiobook.Target
}

// ConcatRequest joins Inputs, in order, into an MP4-family Output. Tags other
// than chapters come from the first input; Metadata replaces the chapter table
// and adds its own tags.
type ConcatRequest struct {
	Inputs   []string
	Metadata audiobook.Metadata
	Output   string
	// Progress receives the muxed duration so far. May be nil.
	Progress func(elapsed time.Duration)
}

// ToolError is a failed external tool run.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Diagnostic returns the last lines the tool wrote to stderr.
func (e *ToolError) Diagnostic() string {
	return tailLines(e.Stderr, diagnosticLines)
}

const diagnosticLines = 20

type diagnostic interface {
	Diagnostic() string
}

// Diagnostic extracts the engine's own error output from err, if it carries any.
func Diagnostic(err error) (string, bool) {
	var d diagnostic
	if !errors.As(err, &d) {
		return "", false
	}
	text := strings.TrimSpace(d.Diagnostic())
	return text, text != ""
}

func tailLines(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
