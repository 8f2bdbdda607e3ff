package audiobook

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Chapter marks a titled position inside one file. Start is relative to the
// beginning of that file.
type Chapter struct {
	Start time.Duration
	Title string
}

// SourceInfo carries the probed attributes used to build a Source.
type SourceInfo struct {
	Path         string
	Duration     time.Duration
	Codec        Codec
	Bitrate      int
	ContainerM4B bool
	Chapters     []Chapter
	HasArtwork   bool
}

// Source is an immutable snapshot of one input file. Conversion yields a new
// Source that points at a temporary file instead of changing this one.
type Source struct {
	path         string
	duration     time.Duration
	codec        Codec
	bitrate      int
	containerM4B bool
	temporary    bool
	chapters     []Chapter
	hasArtwork   bool
}

// NewSource validates info and returns the matching Source.
func NewSource(info SourceInfo) (Source, error) {
	path := strings.TrimSpace(info.Path)
	if path == "" {
		return Source{}, errors.New("source: empty path")
	}
	if info.Duration < 0 {
		return Source{}, fmt.Errorf("source %s: negative duration %s", path, info.Duration)
	}
	if info.Bitrate < 0 {
		return Source{}, fmt.Errorf("source %s: negative bitrate %d", path, info.Bitrate)
	}
	if err := validateChapters(info.Chapters, info.Duration); err != nil {
		return Source{}, fmt.Errorf("source %s: %w", path, err)
	}
	var chapters []Chapter
	if len(info.Chapters) > 0 {
		chapters = append([]Chapter(nil), info.Chapters...)
	}
	return Source{
		path:         path,
		duration:     info.Duration,
		codec:        info.Codec,
		bitrate:      info.Bitrate,
		containerM4B: info.ContainerM4B,
		chapters:     chapters,
		hasArtwork:   info.HasArtwork,
	}, nil
}

func validateChapters(chapters []Chapter, duration time.Duration) error {
	for i, ch := range chapters {
		if ch.Start < 0 {
			return fmt.Errorf("chapter %d starts before the file", i+1)
		}
		if i > 0 && ch.Start <= chapters[i-1].Start {
			return fmt.Errorf("chapter %d does not start after chapter %d", i+1, i)
		}
	}
	if n := len(chapters); n > 0 && chapters[n-1].Start > duration {
		return fmt.Errorf("chapter %d starts after the end of the file", n)
	}
	return nil
}

// IsM4BPath reports whether path names an audiobook container.
func IsM4BPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".m4b")
}

// Converted returns a copy of s backed by the temporary file at path and
// encoded with codec. Ownership of that file passes to the caller.
func (s Source) Converted(path string, codec Codec) Source {
	next := s
	next.path = path
	next.codec = codec
	next.temporary = true
	next.chapters = s.Chapters()
	return next
}

func (s Source) Path() string            { return s.path }
func (s Source) Duration() time.Duration { return s.duration }
func (s Source) Codec() Codec            { return s.codec }

// Bitrate is in kbps and only meaningful for lossy codecs.
func (s Source) Bitrate() int { return s.bitrate }

// IsContainerM4B reports whether the original user file was an m4b.
func (s Source) IsContainerM4B() bool { return s.containerM4B }

// IsTemporary reports whether Path was created by the merge and must be removed.
func (s Source) IsTemporary() bool { return s.temporary }

func (s Source) HasArtwork() bool  { return s.hasArtwork }
func (s Source) HasChapters() bool { return len(s.chapters) > 0 }

// Chapters returns a copy of the file's chapter list, or nil when the file has none.
func (s Source) Chapters() []Chapter {
	if len(s.chapters) == 0 {
		return nil
	}
	return append([]Chapter(nil), s.chapters...)
}

// TotalDuration sums the durations of every source.
func TotalDuration(sources []Source) time.Duration {
	var total time.Duration
	for _, s := range sources {
		total += s.duration
	}
	return total
}
