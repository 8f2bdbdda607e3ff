package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams  []Stream  `json:"streams"`
	Chapters []Chapter `json:"chapters"`
	Format   Format    `json:"format"`
	raw      []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	CodecTag    string            `json:"codec_tag_string"`
	Duration    string            `json:"duration"`
	BitRate     string            `json:"bit_rate"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	SampleRate  string            `json:"sample_rate"`
	Channels    int               `json:"channels"`
	Disposition map[string]int    `json:"disposition"`
	Tags        map[string]string `json:"tags"`
}

// Chapter is a chapter marker as reported by -show_chapters.
type Chapter struct {
	ID        int64             `json:"id"`
	TimeBase  string            `json:"time_base"`
	Start     int64             `json:"start"`
	StartTime string            `json:"start_time"`
	End       int64             `json:"end"`
	EndTime   string            `json:"end_time"`
	Tags      map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-show_chapters", "-of", "json", "--", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Result{}, &Error{Path: path, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	return Parse(output)
}

// Parse decodes raw ffprobe JSON.
func Parse(output []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), output...)
	return result, nil
}

// Error reports a failed ffprobe run together with its diagnostic output.
type Error struct {
	Path   string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffprobe inspect %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("ffprobe inspect %s: %v: %s", e.Path, e.Err, e.Stderr)
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic returns the tool's own error output.
func (e *Error) Diagnostic() string { return e.Stderr }

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// FirstAudioStream returns the first audio stream, if any.
func (r Result) FirstAudioStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			return stream, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

// BitRateValue returns the stream bitrate in bits per second, or 0 when unavailable.
func (s Stream) BitRateValue() int64 {
	rate := parseFloat(s.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

// IsAttachedPicture reports whether a video stream is embedded cover art.
func (s Stream) IsAttachedPicture() bool {
	return s.Disposition["attached_pic"] == 1
}

// StartSeconds returns the chapter start in seconds, or NaN when unparsable.
func (c Chapter) StartSeconds() float64 {
	return parseFloat(c.StartTime)
}

// Title returns the chapter's title tag.
func (c Chapter) Title() string {
	if c.Tags == nil {
		return ""
	}
	return strings.TrimSpace(c.Tags["title"])
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
