package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"m4bmerge/internal/engine"
)

// FakeEngine is a scriptable engine.Engine. Transcode and Concat write small
// placeholder files so callers can assert on what is left on disk.
type FakeEngine struct {
	mu            sync.Mutex
	probes        map[string]engine.ProbeInfo
	probeErrs     map[string]error
	transcodeErrs map[string]error
	concatErr     error
	progress      []time.Duration
	probeHook     func(string)
	transcodeHook func(engine.TranscodeRequest)

	probeCalls []string
	transcodes []engine.TranscodeRequest
	concats    []engine.ConcatRequest
}

var _ engine.Engine = (*FakeEngine)(nil)

// NewFakeEngine returns an engine with nothing scripted.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		probes:        make(map[string]engine.ProbeInfo),
		probeErrs:     make(map[string]error),
		transcodeErrs: make(map[string]error),
	}
}

// AddFile creates dir/name on disk and scripts its probe result. The file
// always reports an audio stream. It returns the file's path.
func (f *FakeEngine) AddFile(t testing.TB, dir, name string, info engine.ProbeInfo) string {
	t.Helper()
	path := filepath.Join(dir, name)
	WriteFile(t, path, 16)
	info.HasAudio = true
	f.SetProbe(path, info)
	return path
}

// SetProbe scripts the probe result for path.
func (f *FakeEngine) SetProbe(path string, info engine.ProbeInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes[path] = info
}

// FailProbe makes probing path fail with err.
func (f *FakeEngine) FailProbe(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErrs[path] = err
}

// FailTranscode makes converting input fail with err after a partial output
// has been written.
func (f *FakeEngine) FailTranscode(input string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcodeErrs[input] = err
}

// OnProbe registers a callback run at the start of every Probe, outside the
// engine's lock.
func (f *FakeEngine) OnProbe(hook func(path string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeHook = hook
}

// OnTranscode registers a callback run at the start of every Transcode.
func (f *FakeEngine) OnTranscode(hook func(engine.TranscodeRequest)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcodeHook = hook
}

// FailConcat makes the merge fail with err after a partial output has been
// written.
func (f *FakeEngine) FailConcat(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concatErr = err
}

// EmitProgress scripts the progress values Concat reports.
func (f *FakeEngine) EmitProgress(steps ...time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append([]time.Duration(nil), steps...)
}

func (f *FakeEngine) Probe(ctx context.Context, path string) (engine.ProbeInfo, error) {
	f.mu.Lock()
	f.probeCalls = append(f.probeCalls, path)
	probeErr, failed := f.probeErrs[path]
	info, scripted := f.probes[path]
	hook := f.probeHook
	f.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	if err := ctx.Err(); err != nil {
		return engine.ProbeInfo{}, err
	}
	if failed {
		return engine.ProbeInfo{}, probeErr
	}
	if !scripted {
		return engine.ProbeInfo{}, fmt.Errorf("fake engine: no probe scripted for %s", path)
	}
	return info, nil
}

func (f *FakeEngine) Transcode(ctx context.Context, req engine.TranscodeRequest) error {
	f.mu.Lock()
	f.transcodes = append(f.transcodes, req)
	err := f.transcodeErrs[req.Input]
	hook := f.transcodeHook
	f.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if writeErr := os.WriteFile(req.Output, []byte("converted"), 0o644); writeErr != nil {
		return writeErr
	}
	return err
}

func (f *FakeEngine) Concat(ctx context.Context, req engine.ConcatRequest) error {
	f.mu.Lock()
	req.Inputs = append([]string(nil), req.Inputs...)
	f.concats = append(f.concats, req)
	err := f.concatErr
	progress := append([]time.Duration(nil), f.progress...)
	f.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if len(req.Inputs) == 0 {
		return errors.New("fake engine: concat without inputs")
	}
	for _, step := range progress {
		if req.Progress != nil {
			req.Progress(step)
		}
	}
	if writeErr := os.WriteFile(req.Output, []byte("merged"), 0o644); writeErr != nil {
		return writeErr
	}
	return err
}

// ProbeCalls returns every path probed so far.
func (f *FakeEngine) ProbeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.probeCalls...)
}

// Transcodes returns every transcode request received so far.
func (f *FakeEngine) Transcodes() []engine.TranscodeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.TranscodeRequest(nil), f.transcodes...)
}

// Concats returns every concat request received so far.
func (f *FakeEngine) Concats() []engine.ConcatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.ConcatRequest(nil), f.concats...)
}
