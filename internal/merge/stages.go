package merge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"m4bmerge/internal/audiobook"
	"m4bmerge/internal/engine"
	"m4bmerge/internal/fileutil"
	"m4bmerge/internal/logging"
	"m4bmerge/internal/outcome"
)

// load probes every path concurrently and waits for all of them. It fails if
// any probe failed, after reporting each failure.
func (p *Pipeline) load(ctx context.Context, paths []string, reporter Reporter) ([]audiobook.Source, error) {
	outcomes := make([]outcome.Outcome[audiobook.Source], len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = p.loadOne(ctx, path)
		}()
	}
	wg.Wait()

	sources, failures := outcome.Collect(outcomes)
	if len(failures) > 0 {
		return nil, p.stageFailure(ctx, stageLoad, failures, reporter)
	}
	return sources, nil
}

func (p *Pipeline) loadOne(ctx context.Context, path string) outcome.Outcome[audiobook.Source] {
	fullPath, err := filepath.Abs(path)
	if err != nil {
		return outcome.Err[audiobook.Source](fmt.Sprintf("File not found: %s", path),
			Wrap(ErrFileNotFound, stageLoad, "resolve", path, err))
	}
	info, err := os.Stat(fullPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return outcome.Err[audiobook.Source](fmt.Sprintf("File not found: %s", fullPath),
			Wrap(ErrFileNotFound, stageLoad, "stat", fullPath, err))
	case err != nil:
		return outcome.Err[audiobook.Source](fmt.Sprintf("Unable to read file: %s", fullPath),
			Wrap(ErrProbeFailure, stageLoad, "stat", fullPath, err))
	case info.IsDir():
		return outcome.Err[audiobook.Source](fmt.Sprintf("File not found: %s", fullPath),
			Wrap(ErrFileNotFound, stageLoad, "stat", fullPath+" is a directory", nil))
	}

	probe, err := p.engine.Probe(ctx, fullPath)
	if err != nil {
		return outcome.Err[audiobook.Source](fmt.Sprintf("Unable to read file: %s", fullPath),
			Wrap(ErrProbeFailure, stageLoad, "probe", fullPath, err))
	}
	if !probe.HasAudio {
		return outcome.Err[audiobook.Source](fmt.Sprintf("Unable to read file: %s", fullPath),
			Wrap(ErrProbeFailure, stageLoad, "probe", fullPath+" has no audio stream", nil))
	}

	src, err := audiobook.NewSource(audiobook.SourceInfo{
		Path:         fullPath,
		Duration:     probe.Duration,
		Codec:        probe.Codec,
		Bitrate:      probe.Bitrate,
		ContainerM4B: audiobook.IsM4BPath(fullPath),
		Chapters:     probe.Chapters,
		HasArtwork:   probe.HasVideo,
	})
	if err != nil {
		return outcome.Err[audiobook.Source](fmt.Sprintf("Unable to read file: %s", fullPath),
			Wrap(ErrProbeFailure, stageLoad, "inspect", fullPath, err))
	}

	logging.WithContext(ctx, p.logger).Debug("loaded file",
		logging.String(logging.FieldFile, fullPath),
		logging.String("codec", src.Codec().String()),
		logging.Int("bitrate_kbps", src.Bitrate()),
		logging.Duration("duration", src.Duration()),
		logging.Int("chapters", len(probe.Chapters)),
	)
	return outcome.Ok(src)
}

// buildMetadata lays out the output chapter table. Files without chapters
// get one synthesized chapter; the running number also advances past every
// explicit chapter so synthesized titles never reuse a number.
func (p *Pipeline) buildMetadata(ctx context.Context, sources []audiobook.Source, tags []Tag) audiobook.Metadata {
	builder := audiobook.NewMetadataBuilder()
	number := 1
	for _, src := range sources {
		if src.HasChapters() {
			builder.AddChapters(src.Duration(), src.Chapters())
			number += len(src.Chapters())
			continue
		}
		builder.AddChapter(src.Duration(), fmt.Sprintf(p.chapterTitleFormat, number))
		number++
	}
	for _, tag := range tags {
		builder.WithEntry(tag.Key, tag.Value)
	}
	metadata := builder.Build()

	logging.WithContext(ctx, p.logger).Debug("built chapter table",
		logging.Int("chapters", len(metadata.Chapters())),
		logging.Int("tags", len(metadata.Tags())),
	)
	return metadata
}

func (p *Pipeline) selectTarget(ctx context.Context, sources []audiobook.Source, override audiobook.Override, reporter Reporter) (audiobook.Target, error) {
	result := audiobook.SelectTarget(sources, override)
	target, ok := result.Value()
	if !ok {
		reporter.Failure(result.Message(), result.Cause())
		logging.WithContext(ctx, p.logger).Debug("codec selection failed", logging.Error(result.Err()))
		return audiobook.Target{}, &StageError{Stage: stageSelect, Failures: []error{result.Err()}}
	}
	logging.WithContext(ctx, p.logger).Info("selected target codec",
		logging.String("target", target.String()),
		logging.Bool("override", override.Codec != ""),
	)
	return target, nil
}

// convert re-encodes every source whose codec differs from target. All
// conversions run to completion; on any failure the temporary files that
// were created are removed before the error is returned.
func (p *Pipeline) convert(ctx context.Context, sources []audiobook.Source, target audiobook.Target, maxParallel int, reporter Reporter) ([]audiobook.Source, int, error) {
	logger := logging.WithContext(ctx, p.logger)

	outcomes := make([]outcome.Outcome[audiobook.Source], len(sources))
	var pending []int
	for i, src := range sources {
		if src.Codec().Same(target.Codec()) {
			outcomes[i] = outcome.Ok(src)
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		logger.Debug("no conversion needed", logging.String("target", target.String()))
		return sources, 0, nil
	}

	var sem chan struct{}
	if maxParallel > 0 && maxParallel < len(pending) {
		sem = make(chan struct{}, maxParallel)
	}

	var (
		mu        sync.Mutex
		completed int
	)
	reporter.Status(fmt.Sprintf("Converting files (0/%d)", len(pending)))

	var wg sync.WaitGroup
	for _, i := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					outcomes[i] = outcome.Err[audiobook.Source](fmt.Sprintf("Failed to convert file: %s", sources[i].Path()),
						Wrap(ErrConversionFailure, stageConvert, "wait", sources[i].Path(), ctx.Err()))
					return
				}
			}
			outcomes[i] = p.convertOne(ctx, sources[i], target)
			if outcomes[i].IsOk() {
				mu.Lock()
				completed++
				reporter.Status(fmt.Sprintf("Converting files (%d/%d)", completed, len(pending)))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	converted, failures := outcome.Collect(outcomes)
	if len(failures) > 0 {
		removed := removeTemporary(logger, outcome.Successes(outcomes))
		logger.Debug("rolled back conversions", logging.Int("removed", removed))
		return nil, 0, p.stageFailure(ctx, stageConvert, failures, reporter)
	}
	return converted, len(pending), nil
}

func (p *Pipeline) convertOne(ctx context.Context, src audiobook.Source, target audiobook.Target) outcome.Outcome[audiobook.Source] {
	logger := logging.WithContext(ctx, p.logger)
	failMsg := fmt.Sprintf("Failed to convert file: %s", src.Path())

	ext, err := audiobook.ExtensionFor(src, target.Codec())
	if err != nil {
		return outcome.Err[audiobook.Source](failMsg, Wrap(ErrConversionFailure, stageConvert, "extension", src.Path(), err))
	}
	tempPath := fileutil.TempPath(p.tempDir, ext)

	logger.Debug("re-encoding file",
		logging.String(logging.FieldFile, src.Path()),
		logging.String("target", target.String()),
		logging.String("temp", tempPath),
	)
	req := engine.TranscodeRequest{Input: src.Path(), Output: tempPath, Target: target}
	if err := p.engine.Transcode(ctx, req); err != nil {
		if rmErr := fileutil.RemoveIfExists(tempPath); rmErr != nil {
			logger.Warn("failed to remove partial conversion",
				logging.String("path", tempPath),
				logging.Error(rmErr),
			)
		}
		return outcome.Err[audiobook.Source](failMsg, Wrap(ErrConversionFailure, stageConvert, "transcode", src.Path(), err))
	}
	return outcome.Ok(src.Converted(tempPath, target.Codec()))
}

// merge concatenates sources into output. Temporary inputs are removed
// afterwards whatever the outcome.
func (p *Pipeline) merge(ctx context.Context, sources []audiobook.Source, metadata audiobook.Metadata, output string, reporter Reporter) error {
	defer p.cleanup(logging.WithStage(ctx, stageCleanup), sources, reporter)

	ctx = logging.WithStage(ctx, stageMerge)
	logger := logging.WithContext(ctx, p.logger)

	inputs := make([]string, len(sources))
	for i, src := range sources {
		inputs[i] = src.Path()
	}
	total := metadata.Duration()
	sampler := logging.NewProgressSampler(10)

	reporter.Status("Merging files")
	err := p.engine.Concat(ctx, engine.ConcatRequest{
		Inputs:   inputs,
		Metadata: metadata,
		Output:   output,
		Progress: func(elapsed time.Duration) {
			reporter.Progress(elapsed, total)
			if total <= 0 {
				return
			}
			percent := float64(elapsed) / float64(total) * 100
			if sampler.ShouldLog(percent, stageMerge) {
				logger.Debug("merge progress",
					logging.Float64("percent", math.Round(percent)),
					logging.Duration("elapsed", elapsed),
				)
			}
		},
	})
	if err != nil {
		if rmErr := fileutil.RemoveIfExists(output); rmErr != nil {
			logger.Warn("failed to remove partial output",
				logging.String("path", output),
				logging.Error(rmErr),
			)
		}
		const msg = "Failed to merge files"
		reporter.Failure(msg, err)
		logger.Error("merge failed", logging.Error(err))
		return &StageError{Stage: stageMerge, Failures: []error{Wrap(ErrMergeFailure, stageMerge, "concat", output, err)}}
	}

	logger.Info("merged files",
		logging.Int("inputs", len(inputs)),
		logging.String("output", output),
		logging.Duration("duration", total),
	)
	return nil
}

// cleanup removes every temporary source. Failures are logged, never returned.
func (p *Pipeline) cleanup(ctx context.Context, sources []audiobook.Source, reporter Reporter) {
	var temporary []audiobook.Source
	for _, src := range sources {
		if src.IsTemporary() {
			temporary = append(temporary, src)
		}
	}
	if len(temporary) == 0 {
		return
	}
	reporter.Status("Removing temporary files")
	removeTemporary(logging.WithContext(ctx, p.logger), temporary)
}

// removeTemporary deletes the files behind temporary sources and returns how
// many were removed.
func removeTemporary(logger *slog.Logger, sources []audiobook.Source) int {
	removed := 0
	for _, src := range sources {
		if !src.IsTemporary() {
			continue
		}
		if err := fileutil.RemoveIfExists(src.Path()); err != nil {
			logger.Warn("failed to remove temporary file",
				logging.String("path", src.Path()),
				logging.Error(err),
			)
			continue
		}
		removed++
	}
	return removed
}

// stageFailure reports every failed item and folds them into one error.
func (p *Pipeline) stageFailure(ctx context.Context, stage string, failures []outcome.Outcome[audiobook.Source], reporter Reporter) error {
	logger := logging.WithContext(ctx, p.logger)
	errs := make([]error, 0, len(failures))
	for _, failure := range failures {
		reporter.Failure(failure.Message(), failure.Cause())
		logger.Debug("item failed", logging.String("reason", failure.Message()), logging.Error(failure.Cause()))
		errs = append(errs, failure.Err())
	}
	return &StageError{Stage: stage, Failures: errs}
}

func buildPlan(output string, outputExists bool, sources []audiobook.Source, target audiobook.Target, metadata audiobook.Metadata) (Plan, error) {
	plan := Plan{
		Output:       output,
		OutputExists: outputExists,
		Target:       target,
		Items:        make([]PlanItem, 0, len(sources)),
		Chapters:     metadata.Chapters(),
		Tags:         metadata.Tags(),
		Duration:     metadata.Duration(),
	}
	for _, src := range sources {
		if src.Codec().Same(target.Codec()) {
			plan.Items = append(plan.Items, PlanItem{Source: src, Action: ActionKeep})
			continue
		}
		ext, err := audiobook.ExtensionFor(src, target.Codec())
		if err != nil {
			return Plan{}, Wrap(ErrConversionFailure, stageConvert, "extension", src.Path(), err)
		}
		plan.Items = append(plan.Items, PlanItem{Source: src, Action: ActionConvert, Extension: ext})
	}
	return plan, nil
}
