package audiobook

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Segment is one file's share of the merged timeline.
type Segment struct {
	Duration time.Duration
	Chapters []Chapter
}

// TimelineChapter is a chapter placed on the merged timeline.
type TimelineChapter struct {
	Start time.Duration
	End   time.Duration
	Title string
}

// Metadata is the chapter table and custom tags written to the merged file.
type Metadata struct {
	segments []Segment
	tags     map[string]string
}

// MetadataBuilder accumulates per-file chapters and tag entries in file order.
type MetadataBuilder struct {
	segments []Segment
	tags     map[string]string
}

func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{tags: make(map[string]string)}
}

// AddChapters appends a file of the given duration together with its own
// chapter list.
func (b *MetadataBuilder) AddChapters(duration time.Duration, chapters []Chapter) *MetadataBuilder {
	b.segments = append(b.segments, Segment{
		Duration: duration,
		Chapters: append([]Chapter(nil), chapters...),
	})
	return b
}

// AddChapter appends a file covered by a single chapter.
func (b *MetadataBuilder) AddChapter(duration time.Duration, title string) *MetadataBuilder {
	return b.AddChapters(duration, []Chapter{{Start: 0, Title: title}})
}

// WithEntry sets a tag. A later entry for the same key replaces the earlier one.
func (b *MetadataBuilder) WithEntry(key, value string) *MetadataBuilder {
	key = strings.TrimSpace(key)
	if key == "" {
		return b
	}
	b.tags[key] = value
	return b
}

// Build returns an immutable snapshot of what has been added so far.
func (b *MetadataBuilder) Build() Metadata {
	segments := make([]Segment, len(b.segments))
	for i, seg := range b.segments {
		segments[i] = Segment{Duration: seg.Duration, Chapters: append([]Chapter(nil), seg.Chapters...)}
	}
	return Metadata{segments: segments, tags: maps.Clone(b.tags)}
}

// Tags returns a copy of the custom tag entries.
func (m Metadata) Tags() map[string]string {
	if m.tags == nil {
		return map[string]string{}
	}
	return maps.Clone(m.tags)
}

// Duration is the length of the merged timeline.
func (m Metadata) Duration() time.Duration {
	var total time.Duration
	for _, seg := range m.segments {
		total += seg.Duration
	}
	return total
}

// Chapters flattens every file's chapters onto the merged timeline. Each
// chapter ends where the next one in its file starts, or where its file ends.
func (m Metadata) Chapters() []TimelineChapter {
	var out []TimelineChapter
	var offset time.Duration
	for _, seg := range m.segments {
		for i, ch := range seg.Chapters {
			end := seg.Duration
			if i+1 < len(seg.Chapters) {
				end = seg.Chapters[i+1].Start
			}
			if end < ch.Start {
				end = ch.Start
			}
			out = append(out, TimelineChapter{
				Start: offset + ch.Start,
				End:   offset + end,
				Title: ch.Title,
			})
		}
		offset += seg.Duration
	}
	return out
}

// FFMetadata renders the bundle in ffmpeg's FFMETADATA1 format with
// millisecond chapter timestamps.
func (m Metadata) FFMetadata() string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for _, key := range slices.Sorted(maps.Keys(m.tags)) {
		b.WriteString(escapeFFMetadata(key))
		b.WriteByte('=')
		b.WriteString(escapeFFMetadata(m.tags[key]))
		b.WriteByte('\n')
	}
	for _, ch := range m.Chapters() {
		b.WriteString("\n[CHAPTER]\nTIMEBASE=1/1000\n")
		b.WriteString("START=")
		b.WriteString(strconv.FormatInt(ch.Start.Milliseconds(), 10))
		b.WriteString("\nEND=")
		b.WriteString(strconv.FormatInt(ch.End.Milliseconds(), 10))
		b.WriteString("\ntitle=")
		b.WriteString(escapeFFMetadata(ch.Title))
		b.WriteByte('\n')
	}
	return b.String()
}

var ffmetadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", "\\\n",
)

func escapeFFMetadata(value string) string {
	return ffmetadataEscaper.Replace(value)
}
