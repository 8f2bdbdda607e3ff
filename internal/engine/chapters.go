package engine

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/simonhull/audiometa"

	"m4bmerge/internal/audiobook"
	"m4bmerge/internal/media/ffprobe"
)

// Test seams, swapped by SetProbeForTests and SetChapterReaderForTests.
var (
	inspectProbe       = ffprobe.Inspect
	readNativeChapters = audiometaChapters
)

var nativeChapterExtensions = map[string]struct{}{
	".m4b": {},
	".m4a": {},
	".mp4": {},
	".mp3": {},
}

func supportsNativeChapters(path string) bool {
	_, ok := nativeChapterExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func audiometaChapters(ctx context.Context, path string) ([]audiobook.Chapter, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck // read-only handle

	chapters := make([]audiobook.Chapter, 0, len(file.Chapters))
	for _, ch := range file.Chapters {
		chapters = append(chapters, audiobook.Chapter{
			Start: ch.StartTime,
			Title: strings.TrimSpace(ch.Title),
		})
	}
	return chapters, nil
}

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := inspectProbe
	inspectProbe = fn
	return func() {
		inspectProbe = previous
	}
}

// SetChapterReaderForTests overrides the native chapter reader during tests.
func SetChapterReaderForTests(fn func(context.Context, string) ([]audiobook.Chapter, error)) func() {
	previous := readNativeChapters
	readNativeChapters = fn
	return func() {
		readNativeChapters = previous
	}
}
