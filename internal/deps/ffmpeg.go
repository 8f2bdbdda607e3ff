package deps

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// MediaTools lists the ffmpeg and ffprobe executables a merge needs.
func MediaTools(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required for conversion and merging",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Required for media inspection",
		},
	}
}

// ToolVersion returns the first line of "<binary> -version", or "" when the
// binary cannot be run.
func ToolVersion(ctx context.Context, binary string) string {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
