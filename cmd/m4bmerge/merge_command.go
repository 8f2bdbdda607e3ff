package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"m4bmerge/internal/audiobook"
	"m4bmerge/internal/config"
	"m4bmerge/internal/engine"
	"m4bmerge/internal/merge"
	"m4bmerge/internal/textutil"
)

type mergeFlags struct {
	output      string
	codec       string
	bitrate     int
	metadata    []string
	assumeYes   bool
	dryRun      bool
	maxParallel int
}

func bindMergeFlags(f *pflag.FlagSet, flags *mergeFlags) {
	f.StringVarP(&flags.output, "output", "o", "", "Output file path")
	f.StringVarP(&flags.codec, "codec", "c", "", "Output file audio codec override (aac|mp3|flac)")
	f.IntVarP(&flags.bitrate, "bitrate", "b", 0, "Output file bitrate (in kb), required if a lossy codec is specified")
	f.StringArrayVarP(&flags.metadata, "metadata", "m", nil, "Additional metadata values to set on the output file (key=value, repeatable)")
	f.BoolVarP(&flags.assumeYes, "yes", "y", false, "Overwrite an existing output file without asking")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Probe inputs and print the merge plan without writing anything")
	f.IntVar(&flags.maxParallel, "max-parallel", 0, "Maximum concurrent conversions (0 converts every file at once)")
}

func runMerge(cmd *cobra.Command, ctx *commandContext, args []string, flags mergeFlags) error {
	printBanner(cmd)

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	opts, err := buildMergeOptions(cmd.Flags(), cfg, flags)
	if err != nil {
		return err
	}
	logger, err := ctx.logger()
	if err != nil {
		return err
	}

	reporter := newConsoleReporter(cmd.OutOrStdout(), cmd.ErrOrStderr(), ctx.debug())
	defer reporter.Finish()
	opts.Reporter = reporter
	opts.Confirmer = newPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout(), shouldColorize(cmd.OutOrStdout()))

	eng := engine.New(engine.Options{
		FFmpegBinary:  cfg.Tools.FFmpeg,
		FFprobeBinary: cfg.Tools.FFprobe,
		TempDir:       cfg.Paths.TempDir,
		Logger:        logger,
	})
	pipeline := merge.NewPipeline(eng, cfg, logger)
	if code := pipeline.Run(cmd.Context(), args, flags.output, opts); code != merge.ExitSuccess {
		return &exitError{code: code}
	}
	return nil
}

// buildMergeOptions layers explicitly set flags over the config file values.
func buildMergeOptions(fs *pflag.FlagSet, cfg *config.Config, flags mergeFlags) (merge.Options, error) {
	changed := fs.Changed

	codecName := cfg.Merge.Codec
	if changed("codec") {
		codecName = flags.codec
	}
	codec, err := audiobook.ParseCodec(codecName)
	if err != nil {
		return merge.Options{}, err
	}

	bitrate := cfg.Merge.Bitrate
	if changed("bitrate") {
		bitrate = flags.bitrate
	}
	if bitrate < 0 {
		return merge.Options{}, fmt.Errorf("bitrate must be positive, got %d", bitrate)
	}

	maxParallel := cfg.Merge.MaxParallel
	if changed("max-parallel") {
		maxParallel = flags.maxParallel
	}
	if maxParallel < 0 {
		return merge.Options{}, fmt.Errorf("max-parallel must not be negative, got %d", maxParallel)
	}

	tags, err := parseTags(flags.metadata)
	if err != nil {
		return merge.Options{}, err
	}

	return merge.Options{
		Override:    audiobook.Override{Codec: codec, Bitrate: bitrate},
		Tags:        tags,
		AssumeYes:   flags.assumeYes || cfg.Merge.AssumeYes,
		DryRun:      flags.dryRun,
		MaxParallel: maxParallel,
	}, nil
}

func parseTags(entries []string) ([]merge.Tag, error) {
	tags := make([]merge.Tag, 0, len(entries))
	for _, entry := range entries {
		key, value, err := textutil.SplitKeyValue(entry)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", entry, err)
		}
		tags = append(tags, merge.Tag{Key: key, Value: value})
	}
	return tags, nil
}
