package merge_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"m4bmerge/internal/audiobook"
	"m4bmerge/internal/config"
	"m4bmerge/internal/engine"
	"m4bmerge/internal/fileutil"
	"m4bmerge/internal/merge"
	"m4bmerge/internal/testsupport"
)

type recordingReporter struct {
	mu       sync.Mutex
	statuses []string
	infos    []string
	failures []string
	causes   []error
	progress []time.Duration
	totals   []time.Duration
	plans    []merge.Plan
}

func (r *recordingReporter) Status(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, text)
}

func (r *recordingReporter) Progress(elapsed, total time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, elapsed)
	r.totals = append(r.totals, total)
}

func (r *recordingReporter) Info(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, text)
}

func (r *recordingReporter) Failure(message string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, message)
	r.causes = append(r.causes, cause)
}

func (r *recordingReporter) Plan(plan merge.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, plan)
}

type confirmFunc func(string) (bool, error)

func (f confirmFunc) ConfirmOverwrite(path string) (bool, error) { return f(path) }

type fixture struct {
	t        *testing.T
	cfg      *config.Config
	engine   *testsupport.FakeEngine
	pipeline *merge.Pipeline
	inputDir string
	outDir   string
	output   string
	reporter *recordingReporter
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	eng := testsupport.NewFakeEngine()
	outDir := t.TempDir()
	return &fixture{
		t:        t,
		cfg:      cfg,
		engine:   eng,
		pipeline: merge.NewPipeline(eng, cfg, nil),
		inputDir: t.TempDir(),
		outDir:   outDir,
		output:   filepath.Join(outDir, "book.m4b"),
		reporter: &recordingReporter{},
	}
}

func (f *fixture) add(name string, codec audiobook.Codec, bitrate int, duration time.Duration, chapters ...audiobook.Chapter) string {
	return f.engine.AddFile(f.t, f.inputDir, name, engine.ProbeInfo{
		Duration: duration,
		Codec:    codec,
		Bitrate:  bitrate,
		Chapters: chapters,
	})
}

func (f *fixture) execute(paths []string, opts merge.Options) (merge.Result, error) {
	if opts.Reporter == nil {
		opts.Reporter = f.reporter
	}
	return f.pipeline.Execute(context.Background(), paths, f.output, opts)
}

func (f *fixture) assertNoTempFiles() {
	f.t.Helper()
	if left := testsupport.TempEntries(f.t, f.cfg); len(left) != 0 {
		f.t.Fatalf("expected temp directory to be empty, found %v", left)
	}
}

func (f *fixture) assertOutputAbsent() {
	f.t.Helper()
	if ok, _ := fileutil.Exists(f.output); ok {
		f.t.Fatalf("expected no output at %s", f.output)
	}
}

func TestNoConversionNeededIsNoOp(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)
	b := f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)

	result, err := f.execute([]string{a, b}, merge.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(f.engine.Transcodes()) != 0 {
		t.Fatalf("expected no transcodes, got %+v", f.engine.Transcodes())
	}
	concats := f.engine.Concats()
	if len(concats) != 1 || !slices.Equal(concats[0].Inputs, []string{a, b}) {
		t.Fatalf("expected merge of original paths, got %+v", concats)
	}
	if result.Converted != 0 {
		t.Fatalf("expected zero conversions, got %d", result.Converted)
	}
	f.assertNoTempFiles()
	if ok, _ := fileutil.Exists(f.output); !ok {
		t.Fatal("expected output to be written")
	}
	if ok, _ := fileutil.Exists(f.output + ".lock"); ok {
		t.Fatal("expected output lock to be released")
	}
	if !slices.Contains(f.reporter.infos, "Loaded 2 files, total length 00:02:00") {
		t.Fatalf("missing load summary in %v", f.reporter.infos)
	}
}

func TestCleanupRunsOnMergeFailure(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.mp3", audiobook.CodecMP3, 128, time.Minute)
	b := f.add("b.mp3", audiobook.CodecMP3, 128, time.Minute)
	f.engine.FailConcat(&engine.ToolError{Tool: "ffmpeg", Stderr: "muxer error", Err: errors.New("exit status 1")})

	opts := merge.Options{Override: audiobook.Override{Codec: audiobook.CodecAAC, Bitrate: 64}}
	result, err := f.execute([]string{a, b}, opts)
	if !errors.Is(err, merge.ErrMergeFailure) {
		t.Fatalf("expected merge failure, got %v", err)
	}
	if len(f.engine.Transcodes()) != 2 || result.Converted != 2 {
		t.Fatalf("expected both inputs converted, got %d", len(f.engine.Transcodes()))
	}
	for _, src := range result.Sources {
		if ok, _ := fileutil.Exists(src.Path()); ok {
			t.Fatalf("temporary file %s survived a failed merge", src.Path())
		}
	}
	f.assertNoTempFiles()
	f.assertOutputAbsent()
	if !slices.Contains(f.reporter.statuses, "Removing temporary files") {
		t.Fatalf("expected cleanup status, got %v", f.reporter.statuses)
	}
	if diag, ok := engine.Diagnostic(f.reporter.causes[len(f.reporter.causes)-1]); !ok || diag != "muxer error" {
		t.Fatalf("expected engine diagnostic on failure cause, got %q", diag)
	}

	if code := f.pipeline.Run(context.Background(), []string{a, b}, f.output, opts); code != merge.ExitFailure {
		t.Fatalf("expected exit code %d, got %d", merge.ExitFailure, code)
	}
}

func TestUnsupportedOnlyBatchFailsEarly(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.ogg", audiobook.Codec("opus"), 64, time.Minute)
	b := f.add("b.ogg", audiobook.Codec("vorbis"), 64, time.Minute)

	_, err := f.execute([]string{a, b}, merge.Options{})
	if !errors.Is(err, merge.ErrUnsupportedCodec) {
		t.Fatalf("expected unsupported codec, got %v", err)
	}
	if len(f.engine.Transcodes()) != 0 || len(f.engine.Concats()) != 0 {
		t.Fatal("no conversion or merge may run after selection fails")
	}
	if len(f.reporter.failures) != 1 || !strings.Contains(f.reporter.failures[0], "specify a codec") {
		t.Fatalf("unexpected failure output %v", f.reporter.failures)
	}
	f.assertOutputAbsent()
}

func TestLossyOverrideWithoutBitrateFails(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)
	b := f.add("b.flac", audiobook.CodecFLAC, 0, time.Minute)

	_, err := f.execute([]string{a, b}, merge.Options{Override: audiobook.Override{Codec: audiobook.CodecMP3}})
	if !errors.Is(err, merge.ErrBitrateRequired) {
		t.Fatalf("expected bitrate required, got %v", err)
	}
	if len(f.engine.Transcodes()) != 0 {
		t.Fatal("no conversion may be attempted")
	}
}

func TestChapterNumberingContinuesAcrossFiles(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.m4a", audiobook.CodecAAC, 64, 10*time.Minute)
	b := f.add("b.m4b", audiobook.CodecAAC, 64, 20*time.Minute,
		audiobook.Chapter{Start: 0, Title: "Prologue"},
		audiobook.Chapter{Start: 5 * time.Minute, Title: "Arrival"},
	)
	c := f.add("c.m4a", audiobook.CodecAAC, 64, 5*time.Minute)

	if _, err := f.execute([]string{a, b, c}, merge.Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	chapters := f.engine.Concats()[0].Metadata.Chapters()
	var titles []string
	for _, ch := range chapters {
		titles = append(titles, ch.Title)
	}
	if want := []string{"Chapter 1", "Prologue", "Arrival", "Chapter 4"}; !slices.Equal(titles, want) {
		t.Fatalf("unexpected titles %v, want %v", titles, want)
	}
	if chapters[2].Start != 15*time.Minute || chapters[3].Start != 30*time.Minute {
		t.Fatalf("unexpected absolute offsets %+v", chapters)
	}
}

func TestChapterTitleFormatFromConfig(t *testing.T) {
	f := newFixture(t, testsupport.WithChapterTitleFormat("Part %d"))
	a := f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)
	b := f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)

	if _, err := f.execute([]string{a, b}, merge.Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	chapters := f.engine.Concats()[0].Metadata.Chapters()
	if len(chapters) != 2 || chapters[0].Title != "Part 1" || chapters[1].Title != "Part 2" {
		t.Fatalf("unexpected chapters %+v", chapters)
	}
}

func TestMajorityCodecConvertsMinority(t *testing.T) {
	f := newFixture(t)
	paths := []string{
		f.add("1.mp3", audiobook.CodecMP3, 64, time.Minute),
		f.add("2.m4a", audiobook.CodecAAC, 128, time.Minute),
		f.add("3.mp3", audiobook.CodecLibMP3Lame, 96, time.Minute),
		f.add("4.m4a", audiobook.CodecAAC, 128, time.Minute),
	}

	result, err := f.execute(paths, merge.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Target.Codec().Same(audiobook.CodecMP3) {
		t.Fatalf("expected mp3 target from tie-break, got %s", result.Target)
	}
	if bitrate, _ := result.Target.Bitrate(); bitrate != 96 {
		t.Fatalf("expected highest mp3 bitrate, got %d", bitrate)
	}
	var converted []string
	for _, req := range f.engine.Transcodes() {
		converted = append(converted, req.Input)
		if filepath.Ext(req.Output) != ".mp3" {
			t.Fatalf("unexpected temp extension %s", req.Output)
		}
	}
	slices.Sort(converted)
	if !slices.Equal(converted, []string{paths[1], paths[3]}) {
		t.Fatalf("expected only aac inputs converted, got %v", converted)
	}
	inputs := f.engine.Concats()[0].Inputs
	if inputs[0] != paths[0] || inputs[2] != paths[2] || inputs[1] == paths[1] || inputs[3] == paths[3] {
		t.Fatalf("merge must keep order and use converted files, got %v", inputs)
	}
	if !slices.Contains(f.reporter.infos, "Converted 2 files") {
		t.Fatalf("missing conversion summary in %v", f.reporter.infos)
	}
	f.assertNoTempFiles()
}

func TestM4BInputConvertsIntoMP4Container(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)
	b := f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)
	c := f.add("c.m4b", audiobook.CodecMP3, 64, time.Minute)

	if _, err := f.execute([]string{a, b, c}, merge.Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	reqs := f.engine.Transcodes()
	if len(reqs) != 1 || filepath.Ext(reqs[0].Output) != ".mp4" {
		t.Fatalf("expected one .mp4 intermediate, got %+v", reqs)
	}
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		paths  func(f *fixture) []string
		output func(f *fixture) string
	}{
		{
			name:   "single input",
			paths:  func(f *fixture) []string { return []string{f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)} },
			output: func(f *fixture) string { return f.output },
		},
		{
			name: "missing output",
			paths: func(f *fixture) []string {
				return []string{f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute), f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)}
			},
			output: func(*fixture) string { return "  " },
		},
		{
			name: "output is an input",
			paths: func(f *fixture) []string {
				return []string{f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute), f.add("b.m4b", audiobook.CodecAAC, 64, time.Minute)}
			},
			output: func(f *fixture) string { return filepath.Join(f.inputDir, "b.m4b") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			paths := tt.paths(f)
			_, err := f.pipeline.Execute(context.Background(), paths, tt.output(f), merge.Options{Reporter: f.reporter})
			if !errors.Is(err, merge.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(f.engine.ProbeCalls()) != 0 {
				t.Fatal("validation failures must not probe inputs")
			}
			if len(f.reporter.failures) != 1 {
				t.Fatalf("expected one diagnostic, got %v", f.reporter.failures)
			}
		})
	}
}

func TestExistingOutput(t *testing.T) {
	setup := func(t *testing.T) (*fixture, []string) {
		f := newFixture(t)
		paths := []string{f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute), f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)}
		testsupport.WriteFile(t, f.output, 4)
		return f, paths
	}

	t.Run("no confirmer", func(t *testing.T) {
		f, paths := setup(t)
		if _, err := f.execute(paths, merge.Options{}); !errors.Is(err, merge.ErrOutputAlreadyExists) {
			t.Fatalf("expected output exists error, got %v", err)
		}
	})

	t.Run("declined", func(t *testing.T) {
		f, paths := setup(t)
		var asked string
		opts := merge.Options{Reporter: f.reporter, Confirmer: confirmFunc(func(path string) (bool, error) {
			asked = path
			return false, nil
		})}
		if code := f.pipeline.Run(context.Background(), paths, f.output, opts); code != merge.ExitSuccess {
			t.Fatalf("declined overwrite should exit %d, got %d", merge.ExitSuccess, code)
		}
		if asked != f.output {
			t.Fatalf("expected prompt for %s, got %q", f.output, asked)
		}
		if len(f.engine.ProbeCalls()) != 0 {
			t.Fatal("declined overwrite must not start work")
		}
	})

	t.Run("confirmed", func(t *testing.T) {
		f, paths := setup(t)
		opts := merge.Options{Confirmer: confirmFunc(func(string) (bool, error) { return true, nil })}
		if _, err := f.execute(paths, opts); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if len(f.engine.Concats()) != 1 {
			t.Fatal("expected merge after confirmation")
		}
	})

	t.Run("assume yes", func(t *testing.T) {
		f, paths := setup(t)
		opts := merge.Options{AssumeYes: true, Confirmer: confirmFunc(func(string) (bool, error) {
			t.Fatal("confirmer must not be consulted")
			return false, nil
		})}
		if _, err := f.execute(paths, opts); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	})
}

func TestOutputLockHeldByAnotherRun(t *testing.T) {
	f := newFixture(t)
	paths := []string{f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute), f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)}
	lock, err := fileutil.LockFile(f.output)
	if err != nil {
		t.Fatalf("LockFile: %v", err)
	}
	defer lock.Release()

	if _, err := f.execute(paths, merge.Options{}); !errors.Is(err, merge.ErrValidation) || !errors.Is(err, fileutil.ErrLocked) {
		t.Fatalf("expected lock validation error, got %v", err)
	}
	if len(f.engine.ProbeCalls()) != 0 {
		t.Fatal("a locked output must not start work")
	}
	if !slices.Equal(f.reporter.failures, []string{"Output file is in use by another merge"}) {
		t.Fatalf("unexpected failures %q", f.reporter.failures)
	}
}

func TestOutputDirectoryMissing(t *testing.T) {
	f := newFixture(t)
	paths := []string{f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute), f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)}
	f.output = filepath.Join(f.outDir, "missing", "book.m4b")

	_, err := f.execute(paths, merge.Options{})
	if !errors.Is(err, merge.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if errors.Is(err, fileutil.ErrLocked) {
		t.Fatalf("missing directory must not look like a held lock: %v", err)
	}
	want := "Unable to create output file " + f.output
	if !slices.Equal(f.reporter.failures, []string{want}) {
		t.Fatalf("expected failure %q, got %q", want, f.reporter.failures)
	}
	if f.reporter.causes[0] == nil {
		t.Fatal("expected the lock error as cause")
	}
	if len(f.engine.ProbeCalls()) != 0 {
		t.Fatal("an unwritable output must not start work")
	}
}

func TestLoadProbesConcurrently(t *testing.T) {
	f := newFixture(t)
	var paths []string
	for _, name := range []string{"a.m4a", "b.m4a", "c.m4a", "d.m4a"} {
		paths = append(paths, f.add(name, audiobook.CodecAAC, 64, time.Minute))
	}

	var inFlight atomic.Int32
	var stalled atomic.Bool
	allStarted := make(chan struct{})
	f.engine.OnProbe(func(string) {
		if inFlight.Add(1) == int32(len(paths)) {
			close(allStarted)
		}
		select {
		case <-allStarted:
		case <-time.After(2 * time.Second):
			stalled.Store(true)
		}
	})

	if _, err := f.execute(paths, merge.Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if stalled.Load() {
		t.Fatalf("expected all %d probes in flight at once, saw %d", len(paths), inFlight.Load())
	}
}

func TestLoadReportsEveryFailure(t *testing.T) {
	f := newFixture(t)
	good := f.add("good.m4a", audiobook.CodecAAC, 64, time.Minute)
	broken := f.add("broken.m4a", audiobook.CodecAAC, 64, time.Minute)
	f.engine.FailProbe(broken, &engine.ToolError{Tool: "ffprobe", Stderr: "moov atom not found", Err: errors.New("exit status 1")})
	missing := filepath.Join(f.inputDir, "missing.mp3")

	_, err := f.execute([]string{good, missing, broken}, merge.Options{})
	var stageErr *merge.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "load" || len(stageErr.Failures) != 2 {
		t.Fatalf("expected load stage error with 2 failures, got %v", err)
	}
	if !errors.Is(err, merge.ErrFileNotFound) || !errors.Is(err, merge.ErrProbeFailure) {
		t.Fatalf("expected both failure kinds, got %v", err)
	}
	want := []string{"File not found: " + missing, "Unable to read file: " + broken}
	if !slices.Equal(f.reporter.failures, want) {
		t.Fatalf("unexpected diagnostics %v, want %v", f.reporter.failures, want)
	}
	if diag, ok := engine.Diagnostic(f.reporter.causes[1]); !ok || diag != "moov atom not found" {
		t.Fatalf("expected probe diagnostic, got %q", diag)
	}
	if len(f.engine.ProbeCalls()) != 2 {
		t.Fatalf("every existing file should be probed, got %v", f.engine.ProbeCalls())
	}
	if len(f.engine.Transcodes()) != 0 || len(f.engine.Concats()) != 0 {
		t.Fatal("nothing may run after a failed load")
	}
}

func TestLoadRejectsFileWithoutAudio(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)
	cover := filepath.Join(f.inputDir, "cover.mp4")
	testsupport.WriteFile(t, cover, 8)
	f.engine.SetProbe(cover, engine.ProbeInfo{Duration: time.Minute, HasVideo: true})

	if _, err := f.execute([]string{a, cover}, merge.Options{}); !errors.Is(err, merge.ErrProbeFailure) {
		t.Fatalf("expected probe failure, got %v", err)
	}
}

func TestConvertFailureRollsBackSiblings(t *testing.T) {
	f := newFixture(t)
	paths := []string{
		f.add("1.m4a", audiobook.CodecAAC, 64, time.Minute),
		f.add("2.m4a", audiobook.CodecAAC, 64, time.Minute),
		f.add("3.m4a", audiobook.CodecAAC, 64, time.Minute),
		f.add("4.mp3", audiobook.CodecMP3, 64, time.Minute),
		f.add("5.flac", audiobook.CodecFLAC, 0, time.Minute),
	}
	f.engine.FailTranscode(paths[4], errors.New("encoder exploded"))

	_, err := f.execute(paths, merge.Options{})
	if !errors.Is(err, merge.ErrConversionFailure) {
		t.Fatalf("expected conversion failure, got %v", err)
	}
	if len(f.engine.Transcodes()) != 2 {
		t.Fatalf("every conversion should be attempted, got %d", len(f.engine.Transcodes()))
	}
	if len(f.engine.Concats()) != 0 {
		t.Fatal("merge must not run after a failed conversion")
	}
	f.assertNoTempFiles()
	if len(f.reporter.failures) != 1 || f.reporter.failures[0] != "Failed to convert file: "+paths[4] {
		t.Fatalf("unexpected diagnostics %v", f.reporter.failures)
	}
}

func TestMaxParallelBoundsConversions(t *testing.T) {
	f := newFixture(t)
	paths := []string{f.add("0.m4a", audiobook.CodecAAC, 64, time.Minute)}
	for _, name := range []string{"1.mp3", "2.mp3", "3.mp3", "4.mp3", "5.mp3"} {
		paths = append(paths, f.add(name, audiobook.CodecMP3, 64, time.Minute))
	}

	var active, peak atomic.Int32
	f.engine.OnTranscode(func(engine.TranscodeRequest) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
	})

	opts := merge.Options{MaxParallel: 2, Override: audiobook.Override{Codec: audiobook.CodecAAC, Bitrate: 64}}
	result, err := f.execute(paths, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Converted != 5 {
		t.Fatalf("expected 5 conversions, got %d", result.Converted)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent conversions, saw %d", got)
	}
	if last := f.reporter.statuses[slices.Index(f.reporter.statuses, "Merging files")-1]; last != "Converting files (5/5)" {
		t.Fatalf("expected final conversion status before merge, got %q", last)
	}
}

func TestMergeProgressAndTagsForwarded(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)
	b := f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)
	f.engine.EmitProgress(30*time.Second, 90*time.Second)

	opts := merge.Options{Tags: []merge.Tag{{Key: "title", Value: "Draft"}, {Key: "artist", Value: "Someone"}, {Key: "title", Value: "Final"}}}
	if _, err := f.execute([]string{a, b}, opts); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !slices.Equal(f.reporter.progress, []time.Duration{30 * time.Second, 90 * time.Second}) {
		t.Fatalf("unexpected progress %v", f.reporter.progress)
	}
	if f.reporter.totals[0] != 2*time.Minute {
		t.Fatalf("expected total length 2m, got %v", f.reporter.totals[0])
	}
	tags := f.engine.Concats()[0].Metadata.Tags()
	if tags["title"] != "Final" || tags["artist"] != "Someone" {
		t.Fatalf("unexpected tags %v", tags)
	}
	if last := f.reporter.infos[len(f.reporter.infos)-1]; last != "Successfully merged 2 files to "+f.output {
		t.Fatalf("unexpected success line %q", last)
	}
}

func TestDryRunCreatesNoFiles(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)
	b := f.add("b.m4a", audiobook.CodecAAC, 96, time.Minute)
	c := f.add("c.m4b", audiobook.CodecMP3, 64, time.Minute)

	result, err := f.execute([]string{a, b, c}, merge.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Plan == nil || len(f.reporter.plans) != 1 {
		t.Fatal("expected a plan")
	}
	plan := *result.Plan
	if plan.Converts() != 1 || plan.Items[2].Action != merge.ActionConvert || plan.Items[2].Extension != ".mp4" {
		t.Fatalf("unexpected plan items %+v", plan.Items)
	}
	if bitrate, _ := plan.Target.Bitrate(); bitrate != 96 {
		t.Fatalf("unexpected plan target %s", plan.Target)
	}
	if len(f.engine.Transcodes()) != 0 || len(f.engine.Concats()) != 0 {
		t.Fatal("dry run must not convert or merge")
	}
	f.assertNoTempFiles()
	entries, err := os.ReadDir(f.outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("dry run must not touch the output directory, found %d entries", len(entries))
	}
}

func TestCancelledContextFailsRun(t *testing.T) {
	f := newFixture(t)
	a := f.add("a.m4a", audiobook.CodecAAC, 64, time.Minute)
	b := f.add("b.m4a", audiobook.CodecAAC, 64, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.pipeline.Execute(ctx, []string{a, b}, f.output, merge.Options{Reporter: f.reporter})
	if !errors.Is(err, merge.ErrProbeFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled probes, got %v", err)
	}
	f.assertOutputAbsent()
}
