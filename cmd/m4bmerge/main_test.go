package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"m4bmerge/internal/config"
	"m4bmerge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	workDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(base, "m4bmerge.toml")
	writeTestConfig(t, configPath, cfg)

	workDir := filepath.Join(base, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work dir: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, workDir: workDir}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, stdin string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

func TestVersionFlagPrintsVersionOnly(t *testing.T) {
	code, out, _ := runCLI(t, []string{"--version"}, "")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if out != version+"\n" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestMergeRequiresTwoInputs(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.workDir, "a.mp3")
	testsupport.WriteFile(t, input, 8)

	code, out, errOut := runCLI(t, []string{input, "-o", filepath.Join(env.workDir, "out.m4b"), "--config", env.configPath}, "")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	requireContains(t, out, "m4bmerge v"+version)
	requireContains(t, errOut, "ERR: At least two input files are required")
}

func TestMergeRejectsOutputMatchingInput(t *testing.T) {
	env := setupCLITestEnv(t)
	a := filepath.Join(env.workDir, "a.m4b")
	b := filepath.Join(env.workDir, "b.m4b")

	code, _, errOut := runCLI(t, []string{a, b, "-o", b, "--config", env.configPath}, "")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	requireContains(t, errOut, "Output path cannot be the same as an input file")
}

func TestMergeRejectsInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "codec", args: []string{"-c", "opus"}, want: "unknown codec"},
		{name: "bitrate", args: []string{"-b", "-5"}, want: "bitrate must be positive"},
		{name: "metadata", args: []string{"-m", "title"}, want: "expected key=value"},
		{name: "parallel", args: []string{"--max-parallel", "-1"}, want: "max-parallel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupCLITestEnv(t)
			args := append([]string{"a.mp3", "b.mp3", "-o", "out.m4b", "--config", env.configPath}, tt.args...)
			code, _, errOut := runCLI(t, args, "")
			if code != 1 {
				t.Fatalf("expected exit 1, got %d", code)
			}
			requireContains(t, errOut, tt.want)
		})
	}
}

func TestMergeDeclinedOverwriteExitsZero(t *testing.T) {
	env := setupCLITestEnv(t)
	output := filepath.Join(env.workDir, "book.m4b")
	testsupport.WriteFile(t, output, 4)

	args := []string{filepath.Join(env.workDir, "a.mp3"), filepath.Join(env.workDir, "b.mp3"), "-o", output, "--config", env.configPath}
	code, out, errOut := runCLI(t, args, "n\n")
	if code != 0 {
		t.Fatalf("expected exit 0 after declining, got %d (stderr %q)", code, errOut)
	}
	requireContains(t, out, "already exists, overwrite?")
	if strings.Contains(errOut, "Loading input files") {
		t.Fatal("declined overwrite must not start loading")
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() != 4 {
		t.Fatalf("existing output must be left alone: %v", err)
	}
}

func TestMergeMissingInputsReportsEach(t *testing.T) {
	env := setupCLITestEnv(t)
	a := filepath.Join(env.workDir, "a.mp3")
	b := filepath.Join(env.workDir, "b.mp3")

	code, _, errOut := runCLI(t, []string{a, b, "-o", filepath.Join(env.workDir, "out.m4b"), "--config", env.configPath}, "")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	requireContains(t, errOut, "ERR: File not found: "+a)
	requireContains(t, errOut, "ERR: File not found: "+b)
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	code, out, errOut := runCLI(t, []string{"config", "validate", "--config", env.configPath}, "")
	if code != 0 {
		t.Fatalf("config validate: exit %d: %s", code, errOut)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	code, out, errOut = runCLI(t, []string{"config", "init", "--path", target}, "")
	if code != 0 {
		t.Fatalf("config init: exit %d: %s", code, errOut)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	code, _, errOut = runCLI(t, []string{"config", "init", "--path", target}, "")
	if code != 1 {
		t.Fatalf("expected second init to fail, got %d", code)
	}
	requireContains(t, errOut, "already exists")

	code, out, _ = runCLI(t, []string{"config", "validate", "--config", target}, "")
	if code != 0 {
		t.Fatalf("sample config should validate, got exit %d", code)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[merge]\ncodec = \"opus\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCLI(t, []string{"config", "validate", "--config", env.configPath}, "")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	requireContains(t, errOut, "merge.codec")
}

func TestDoctorWithStubbedTools(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	code, out, errOut := runCLI(t, []string{"doctor", "--config", env.configPath, "-o", filepath.Join(env.workDir, "book.m4b")}, "")
	if code != 0 {
		t.Fatalf("doctor: exit %d: %s%s", code, out, errOut)
	}
	requireContains(t, out, "[OK]")
	requireContains(t, out, "Output directory")
	requireContains(t, out, "Ready to merge")
}

func TestDoctorReportsMissingTool(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.FFmpeg = filepath.Join(env.workDir, "missing-ffmpeg")
	writeTestConfig(t, env.configPath, env.cfg)

	code, out, _ := runCLI(t, []string{"doctor", "--config", env.configPath}, "")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	requireContains(t, out, "[ERR]")
	requireContains(t, out, "Failed: ")
}
