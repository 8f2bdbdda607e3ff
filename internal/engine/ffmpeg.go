package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"m4bmerge/internal/audiobook"
	"m4bmerge/internal/logging"
	"m4bmerge/internal/media/ffprobe"
)

// Options configures the ffmpeg-backed Engine.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	// TempDir holds the concat list and chapter file while a merge runs.
	TempDir string
	Logger  *slog.Logger
}

// FFmpeg implements Engine by running the ffmpeg and ffprobe executables.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
	tempDir string
	logger  *slog.Logger
}

// New returns an Engine backed by ffmpeg and ffprobe.
func New(opts Options) *FFmpeg {
	ffmpegBinary := strings.TrimSpace(opts.FFmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	ffprobeBinary := strings.TrimSpace(opts.FFprobeBinary)
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &FFmpeg{
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		tempDir: strings.TrimSpace(opts.TempDir),
		logger:  logging.NewComponentLogger(opts.Logger, "engine"),
	}
}

// Probe inspects path with ffprobe. Chapters missing from ffprobe's view of
// MP4 and MP3 files are read natively as a fallback.
func (f *FFmpeg) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	result, err := inspectProbe(ctx, f.ffprobe, path)
	if err != nil {
		return ProbeInfo{}, err
	}
	info, err := probeInfoFromResult(result)
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	if len(info.Chapters) == 0 && supportsNativeChapters(path) {
		chapters, err := readNativeChapters(ctx, path)
		if err != nil {
			f.logger.Debug("native chapter read failed",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
			)
		} else {
			info.Chapters = normalizeChapters(chapters, info.Duration)
		}
	}
	return info, nil
}

// Transcode re-encodes the audio stream of req.Input into req.Output.
func (f *FFmpeg) Transcode(ctx context.Context, req TranscodeRequest) error {
	if strings.TrimSpace(req.Input) == "" || strings.TrimSpace(req.Output) == "" {
		return errors.New("transcode: input and output are required")
	}
	return f.run(ctx, TranscodeArgs(req), nil)
}

// Concat joins req.Inputs into req.Output with the chapter table from req.Metadata.
func (f *FFmpeg) Concat(ctx context.Context, req ConcatRequest) error {
	if len(req.Inputs) == 0 {
		return errors.New("concat: no inputs")
	}
	if strings.TrimSpace(req.Output) == "" {
		return errors.New("concat: output is required")
	}

	workDir, err := os.MkdirTemp(f.tempDir, "m4bmerge-concat-")
	if err != nil {
		return fmt.Errorf("concat: create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			f.logger.Warn("failed to remove concat work directory",
				logging.String("path", workDir),
				logging.Error(err),
			)
		}
	}()

	listPath := filepath.Join(workDir, "inputs.txt")
	if err := os.WriteFile(listPath, []byte(ConcatList(req.Inputs)), 0o600); err != nil {
		return fmt.Errorf("concat: write input list: %w", err)
	}
	metadataPath := filepath.Join(workDir, "metadata.txt")
	if err := os.WriteFile(metadataPath, []byte(req.Metadata.FFMetadata()), 0o600); err != nil {
		return fmt.Errorf("concat: write chapter table: %w", err)
	}

	args := ConcatArgs(listPath, req.Inputs[0], metadataPath, req.Output, req.Metadata.Tags(), req.Progress != nil)
	return f.run(ctx, args, req.Progress)
}

func (f *FFmpeg) run(ctx context.Context, args []string, progress func(time.Duration)) error {
	f.logger.Debug("running ffmpeg", logging.String("args", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, f.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if progress == nil {
		if err := cmd.Run(); err != nil {
			return f.toolError(ctx, args, stderr.String(), err)
		}
		return nil
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return f.toolError(ctx, args, stderr.String(), err)
	}
	readProgress(stdout, progress)
	if err := cmd.Wait(); err != nil {
		return f.toolError(ctx, args, stderr.String(), err)
	}
	return nil
}

func (f *FFmpeg) toolError(ctx context.Context, args []string, stderr string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return &ToolError{Tool: f.ffmpeg, Args: append([]string(nil), args...), Stderr: stderr, Err: err}
}

func probeInfoFromResult(result ffprobe.Result) (ProbeInfo, error) {
	audio, ok := result.FirstAudioStream()
	if !ok {
		return ProbeInfo{}, errors.New("no audio stream")
	}
	seconds := result.DurationSeconds()
	if math.IsNaN(seconds) || seconds < 0 {
		return ProbeInfo{}, fmt.Errorf("invalid duration %q", result.Format.Duration)
	}
	duration := secondsToDuration(seconds)

	bitsPerSecond := audio.BitRateValue()
	if bitsPerSecond == 0 {
		bitsPerSecond = result.BitRate()
	}

	chapters := make([]audiobook.Chapter, 0, len(result.Chapters))
	for _, ch := range result.Chapters {
		start := ch.StartSeconds()
		if math.IsNaN(start) {
			continue
		}
		chapters = append(chapters, audiobook.Chapter{Start: secondsToDuration(start), Title: ch.Title()})
	}

	return ProbeInfo{
		Duration: duration,
		Codec:    audiobook.Codec(strings.ToLower(strings.TrimSpace(audio.CodecName))),
		Bitrate:  int(bitsPerSecond / 1000),
		Chapters: normalizeChapters(chapters, duration),
		HasAudio: true,
		HasVideo: result.VideoStreamCount() > 0,
	}, nil
}

// normalizeChapters drops markers that would break the strictly increasing,
// in-bounds chapter invariant. Returns nil for an empty list.
func normalizeChapters(chapters []audiobook.Chapter, duration time.Duration) []audiobook.Chapter {
	var out []audiobook.Chapter
	for _, ch := range chapters {
		if ch.Start < 0 || ch.Start > duration {
			continue
		}
		if n := len(out); n > 0 && ch.Start <= out[n-1].Start {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
