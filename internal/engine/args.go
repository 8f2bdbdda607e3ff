package engine

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// TranscodeArgs builds the ffmpeg arguments for a TranscodeRequest.
func TranscodeArgs(req TranscodeRequest) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", req.Input,
		"-map_metadata", "0",
		"-c", "copy",
		"-c:a", req.Target.Codec().Encoder(),
	}
	if bitrate, ok := req.Target.Bitrate(); ok {
		args = append(args, "-b:a", strconv.Itoa(bitrate)+"k")
	}
	return append(args, req.Output)
}

// ConcatArgs builds the ffmpeg arguments for joining the files listed in
// listPath. Input 0 is the concat demuxer, input 1 the first file (metadata
// and artwork donor) and input 2 the FFMETADATA chapter table.
func ConcatArgs(listPath, firstInput, metadataPath, output string, tags map[string]string, withProgress bool) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", firstInput,
		"-i", metadataPath,
		"-map", "0:a",
		"-map", "1:v:0?",
		"-map_metadata", "1",
		"-map_chapters", "2",
		"-metadata", "track=",
	}
	for _, key := range slices.Sorted(maps.Keys(tags)) {
		args = append(args, "-metadata", key+"="+tags[key])
	}
	args = append(args, "-c", "copy", "-f", "mp4")
	if withProgress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	return append(args, output)
}

// ConcatList renders the concat demuxer input list.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&b, "file '%s'\n", escapeQuote(path))
	}
	return b.String()
}

func escapeQuote(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
