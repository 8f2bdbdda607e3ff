// Package engine is the boundary to the external media tools.
//
// The Engine interface exposes the three capabilities a merge needs: probing
// an input, re-encoding its audio, and concatenating the batch into a
// chaptered MP4-family file. FFmpeg implements it by building argument lists
// for the ffmpeg and ffprobe executables; failures come back as *ToolError
// carrying the tool's stderr so callers can show it in verbose mode.
package engine
