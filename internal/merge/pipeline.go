package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"m4bmerge/internal/audiobook"
	"m4bmerge/internal/config"
	"m4bmerge/internal/engine"
	"m4bmerge/internal/fileutil"
	"m4bmerge/internal/logging"
	"m4bmerge/internal/textutil"
)

// Process exit codes returned by Run.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

const (
	stageValidate = "validate"
	stageLoad     = "load"
	stageMetadata = "metadata"
	stageSelect   = "select"
	stageConvert  = "convert"
	stageMerge    = "merge"
	stageCleanup  = "cleanup"
)

const defaultChapterTitleFormat = "Chapter %d"

var errDeclined = errors.New("overwrite declined")

// Tag is a user-supplied metadata entry for the output file.
type Tag struct {
	Key   string
	Value string
}

// Options controls a single run.
type Options struct {
	// Override forces the output codec and bitrate.
	Override audiobook.Override
	// Tags are applied in order; a later entry for the same key wins.
	Tags []Tag
	// AssumeYes replaces an existing output without asking.
	AssumeYes bool
	// DryRun stops after codec selection and reports the plan.
	DryRun bool
	// MaxParallel caps concurrent conversions. 0 means one per file.
	MaxParallel int
	Confirmer   Confirmer
	Reporter    Reporter
}

// Result summarizes a finished run.
type Result struct {
	Output string
	Target audiobook.Target
	// Sources are the files handed to the merge, converted ones included.
	Sources   []audiobook.Source
	Converted int
	// Declined is set when the user chose to keep an existing output.
	Declined bool
	// Plan is set for dry runs.
	Plan *Plan
}

// Pipeline merges audio files through an Engine.
type Pipeline struct {
	engine             engine.Engine
	logger             *slog.Logger
	tempDir            string
	chapterTitleFormat string
}

// NewPipeline wires a pipeline to eng using the temp directory and chapter
// title format from cfg. cfg may be nil.
func NewPipeline(eng engine.Engine, cfg *config.Config, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		engine:             eng,
		logger:             logging.NewComponentLogger(logger, "merge"),
		chapterTitleFormat: defaultChapterTitleFormat,
	}
	if cfg != nil {
		p.tempDir = strings.TrimSpace(cfg.Paths.TempDir)
		if format := strings.TrimSpace(cfg.Merge.ChapterTitleFormat); format != "" {
			p.chapterTitleFormat = format
		}
	}
	return p
}

// Run executes the pipeline and returns the process exit code. Diagnostics
// have already gone to opts.Reporter when it returns ExitFailure.
func (p *Pipeline) Run(ctx context.Context, paths []string, output string, opts Options) int {
	if _, err := p.Execute(ctx, paths, output, opts); err != nil {
		return ExitFailure
	}
	return ExitSuccess
}

// Execute runs every stage in order and returns the first stage failure.
// Cleanup of converted files always runs once the merge stage is reached.
func (p *Pipeline) Execute(ctx context.Context, paths []string, output string, opts Options) (Result, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	ctx = logging.WithRunID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, p.logger)
	logger.Debug("merge requested",
		logging.Int("inputs", len(paths)),
		logging.String("output", output),
		logging.Bool("dry_run", opts.DryRun),
	)

	validateCtx := logging.WithStage(ctx, stageValidate)
	outputPath, err := p.validateArgs(validateCtx, paths, output, reporter)
	if err != nil {
		return Result{}, err
	}

	if !opts.DryRun {
		lock, err := fileutil.LockFile(outputPath)
		if err != nil {
			msg := fmt.Sprintf("Unable to create output file %s", outputPath)
			if errors.Is(err, fileutil.ErrLocked) {
				msg = "Output file is in use by another merge"
			}
			reporter.Failure(msg, err)
			return Result{}, Wrap(ErrValidation, stageValidate, "lock output", msg, err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("failed to release output lock", logging.Error(err))
			}
		}()
	}

	outputExists, err := p.confirmOutput(validateCtx, outputPath, opts, reporter)
	if err != nil {
		if errors.Is(err, errDeclined) {
			return Result{Output: outputPath, Declined: true}, nil
		}
		return Result{}, err
	}

	reporter.Status("Loading input files")
	sources, err := p.load(logging.WithStage(ctx, stageLoad), paths, reporter)
	if err != nil {
		return Result{}, err
	}
	total := audiobook.TotalDuration(sources)
	reporter.Info(fmt.Sprintf("Loaded %d files, total length %s", len(sources), textutil.FormatClock(total)))

	metadata := p.buildMetadata(logging.WithStage(ctx, stageMetadata), sources, opts.Tags)

	target, err := p.selectTarget(logging.WithStage(ctx, stageSelect), sources, opts.Override, reporter)
	if err != nil {
		return Result{}, err
	}

	if opts.DryRun {
		plan, err := buildPlan(outputPath, outputExists, sources, target, metadata)
		if err != nil {
			reporter.Failure("Unable to plan conversions", err)
			return Result{}, err
		}
		reporter.Plan(plan)
		return Result{Output: outputPath, Target: target, Sources: sources, Plan: &plan}, nil
	}

	converted, count, err := p.convert(logging.WithStage(ctx, stageConvert), sources, target, opts.MaxParallel, reporter)
	if err != nil {
		return Result{}, err
	}
	if count > 0 {
		reporter.Info(fmt.Sprintf("Converted %d %s", count, textutil.Plural(count, "file", "files")))
	}

	result := Result{Output: outputPath, Target: target, Sources: converted, Converted: count}
	if err := p.merge(ctx, converted, metadata, outputPath, reporter); err != nil {
		return result, err
	}
	reporter.Info(fmt.Sprintf("Successfully merged %d files to %s", len(converted), output))
	return result, nil
}

// validateArgs checks the request shape and returns the absolute output path.
func (p *Pipeline) validateArgs(ctx context.Context, paths []string, output string, reporter Reporter) (string, error) {
	logger := logging.WithContext(ctx, p.logger)
	fail := func(msg string) (string, error) {
		reporter.Failure(msg, nil)
		logger.Debug("validation failed", logging.String("reason", msg))
		return "", Wrap(ErrValidation, stageValidate, "", msg, nil)
	}

	if len(paths) < 2 {
		return fail("At least two input files are required")
	}
	if strings.TrimSpace(output) == "" {
		return fail("No output path provided")
	}
	for _, path := range paths {
		if path == output || fileutil.SamePath(path, output) {
			return fail("Output path cannot be the same as an input file")
		}
	}
	outputPath, err := fileutil.AbsPath(output)
	if err != nil {
		return fail(fmt.Sprintf("Invalid output path %s", output))
	}
	return outputPath, nil
}

// confirmOutput checks for an existing output once, before any work starts.
// It reports whether the output exists.
func (p *Pipeline) confirmOutput(ctx context.Context, outputPath string, opts Options, reporter Reporter) (bool, error) {
	logger := logging.WithContext(ctx, p.logger)
	exists, err := fileutil.Exists(outputPath)
	if err != nil {
		msg := fmt.Sprintf("Unable to check output file %s", outputPath)
		reporter.Failure(msg, err)
		return false, Wrap(ErrValidation, stageValidate, "stat output", msg, err)
	}
	if !exists || opts.DryRun {
		return exists, nil
	}
	if opts.AssumeYes {
		logger.Info("replacing existing output", logging.String("output", outputPath))
		return true, nil
	}
	if opts.Confirmer == nil {
		msg := fmt.Sprintf("Output file %s already exists", outputPath)
		reporter.Failure(msg, nil)
		return true, Wrap(ErrOutputAlreadyExists, stageValidate, "", outputPath, nil)
	}
	ok, err := opts.Confirmer.ConfirmOverwrite(outputPath)
	if err != nil {
		msg := "Unable to confirm overwrite"
		reporter.Failure(msg, err)
		return true, Wrap(ErrOutputAlreadyExists, stageValidate, "confirm", msg, err)
	}
	if !ok {
		logger.Info("keeping existing output", logging.String("output", outputPath))
		return true, errDeclined
	}
	return true, nil
}
