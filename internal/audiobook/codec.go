package audiobook

import (
	"fmt"
	"strings"
)

// Codec names an audio codec the way ffprobe reports it or ffmpeg encodes it.
type Codec string

const (
	CodecAAC Codec = "aac"
	// CodecMP3 is the name newer ffprobe builds report for MPEG layer III audio.
	CodecMP3 Codec = "mp3"
	// CodecLibMP3Lame is the encoder name, still reported by older probes.
	CodecLibMP3Lame Codec = "libmp3lame"
	CodecFLAC       Codec = "flac"
)

// ParseCodec resolves a user-supplied codec choice (aac, mp3 or flac).
// MP3 resolves to the lame encoder.
func ParseCodec(value string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "aac":
		return CodecAAC, nil
	case "mp3", "libmp3lame":
		return CodecLibMP3Lame, nil
	case "flac":
		return CodecFLAC, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown codec %q (expected aac, mp3 or flac)", value)
	}
}

// Canonical folds the two MP3 names into one so they group and compare together.
func (c Codec) Canonical() Codec {
	normalized := Codec(strings.ToLower(strings.TrimSpace(string(c))))
	if normalized == CodecLibMP3Lame {
		return CodecMP3
	}
	return normalized
}

// Same reports whether both names describe the same codec.
func (c Codec) Same(other Codec) bool {
	return c.Canonical() == other.Canonical()
}

// IsSupported reports whether the codec can be stored in the output container.
func (c Codec) IsSupported() bool {
	switch c.Canonical() {
	case CodecAAC, CodecMP3, CodecFLAC:
		return true
	default:
		return false
	}
}

// IsLossless reports whether the codec ignores bitrate.
func (c Codec) IsLossless() bool {
	return c.Canonical() == CodecFLAC
}

// IsLossy reports whether encoding to the codec needs a bitrate.
func (c Codec) IsLossy() bool {
	return c.IsSupported() && !c.IsLossless()
}

// Encoder returns the ffmpeg encoder name for the codec.
func (c Codec) Encoder() string {
	if c.Canonical() == CodecMP3 {
		return string(CodecLibMP3Lame)
	}
	return string(c.Canonical())
}

// Extension returns the canonical file extension for the codec.
func (c Codec) Extension() (string, bool) {
	switch c.Canonical() {
	case CodecAAC:
		return ".m4a", true
	case CodecMP3:
		return ".mp3", true
	case CodecFLAC:
		return ".flac", true
	default:
		return "", false
	}
}

func (c Codec) String() string {
	if c == "" {
		return "unknown"
	}
	return string(c)
}
