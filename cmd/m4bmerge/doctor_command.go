package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"m4bmerge/internal/config"
	"m4bmerge/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg, ffprobe and the working directories are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if strings.TrimSpace(output) != "" {
				results = append(results, preflight.CheckOutputLocation(output))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range doctorLines(cfg, results, colorize) {
				fmt.Fprintln(out, line)
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Also check that this output file's directory is writable")
	return cmd
}

func doctorLines(cfg *config.Config, results []preflight.Result, colorize bool) []string {
	lines := renderHeading("Environment", colorize)
	for _, r := range results {
		kind := fieldReady
		if !r.Passed {
			kind = fieldFailed
		}
		lines = append(lines, renderField(r.Name, kind, r.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderHeading("Merge defaults", colorize)...)
	codec := cfg.Merge.Codec
	if codec == "" {
		codec = "auto (most common input codec)"
	}
	lines = append(lines, renderField("Codec", fieldValue, codec, colorize))
	if cfg.Merge.Bitrate > 0 {
		lines = append(lines, renderField("Bitrate", fieldValue, formatBitrate(cfg.Merge.Bitrate), colorize))
	}
	parallel := "one per file"
	if cfg.Merge.MaxParallel > 0 {
		parallel = fmt.Sprintf("%d", cfg.Merge.MaxParallel)
	}
	lines = append(lines, renderField("Conversions", fieldValue, parallel, colorize))
	lines = append(lines, renderField("Chapter titles", fieldValue, cfg.Merge.ChapterTitleFormat, colorize))
	lines = append(lines, renderField("Assume yes", fieldValue, yesNo(cfg.Merge.AssumeYes), colorize))

	summary := renderField("Summary", fieldReady, "Ready to merge", colorize)
	if failed := preflight.Failed(results); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, r := range failed {
			names = append(names, r.Name)
		}
		summary = renderField("Summary", fieldFailed, "Failed: "+strings.Join(names, ", "), colorize)
	}
	return append(lines, "", summary)
}
