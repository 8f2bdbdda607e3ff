package ffprobe

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestParseChaptersAndStreams(t *testing.T) {
	raw := []byte(`{
  "streams": [
    {"index": 0, "codec_name": "aac", "codec_type": "audio", "bit_rate": "127998"},
    {"index": 1, "codec_name": "mjpeg", "codec_type": "video", "disposition": {"attached_pic": 1}}
  ],
  "chapters": [
    {"id": 0, "time_base": "1/1000", "start": 0, "start_time": "0.000000", "end": 61000, "end_time": "61.000000", "tags": {"title": " Opening "}},
    {"id": 1, "time_base": "1/1000", "start": 61000, "start_time": "61.000000", "end": 120000, "end_time": "120.000000"}
  ],
  "format": {"duration": "120.000000", "bit_rate": "130000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2", "tags": {"title": "Book"}}
}`)
	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	audio, ok := result.FirstAudioStream()
	if !ok || audio.CodecName != "aac" || audio.BitRateValue() != 127998 {
		t.Fatalf("unexpected audio stream %+v", audio)
	}
	if !result.Streams[1].IsAttachedPicture() || result.VideoStreamCount() != 1 {
		t.Fatalf("expected attached picture stream, got %+v", result.Streams[1])
	}
	if len(result.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(result.Chapters))
	}
	if result.Chapters[0].Title() != "Opening" || result.Chapters[1].Title() != "" {
		t.Fatalf("unexpected chapter titles %q %q", result.Chapters[0].Title(), result.Chapters[1].Title())
	}
	if result.Chapters[1].StartSeconds() != 61 {
		t.Fatalf("unexpected chapter start %v", result.Chapters[1].StartSeconds())
	}
	if result.Format.Tags["title"] != "Book" {
		t.Fatalf("expected format tags, got %v", result.Format.Tags)
	}
	if len(result.RawJSON()) != len(raw) {
		t.Fatal("expected raw payload to be retained")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestErrorCarriesDiagnostic(t *testing.T) {
	err := &Error{Path: "/a.mp3", Stderr: "Invalid data found when processing input", Err: errors.New("exit status 1")}
	if err.Diagnostic() != "Invalid data found when processing input" {
		t.Fatalf("unexpected diagnostic %q", err.Diagnostic())
	}
	if !strings.Contains(err.Error(), "/a.mp3") || !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}
