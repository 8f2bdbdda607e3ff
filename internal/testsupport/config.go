package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"m4bmerge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Tools.FFmpeg = "ffmpeg"
	cfgVal.Tools.FFprobe = "ffprobe"
	if err := os.MkdirAll(cfgVal.Paths.TempDir, 0o755); err != nil {
		t.Fatalf("mkdir temp dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithChapterTitleFormat overrides the synthesized chapter title format.
func WithChapterTitleFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.ChapterTitleFormat = format
	}
}

// WithLogDir enables file logging under the test base directory.
func WithLogDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LogDir = filepath.Join(b.baseDir, "logs")
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// points the tool settings at them. If names is empty, ffmpeg and ffprobe
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			switch name {
			case "ffmpeg":
				b.cfg.Tools.FFmpeg = target
			case "ffprobe":
				b.cfg.Tools.FFprobe = target
			}
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TempDir)
}

// TempEntries lists the files left in the config's temp directory.
func TempEntries(t testing.TB, cfg *config.Config) []string {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.TempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
