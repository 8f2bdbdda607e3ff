package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"m4bmerge/internal/audiobook"
	"m4bmerge/internal/engine"
	"m4bmerge/internal/textutil"
)

type inspectEntry struct {
	Path       string   `json:"path"`
	Codec      string   `json:"codec,omitempty"`
	BitrateKbp int      `json:"bitrate_kbps,omitempty"`
	Seconds    float64  `json:"duration_seconds"`
	Chapters   []string `json:"chapters,omitempty"`
	Artwork    bool     `json:"artwork"`
	Error      string   `json:"error,omitempty"`

	duration time.Duration
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect <paths...>",
		Short: "Probe audio files and show what a merge would read from them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			eng := engine.New(engine.Options{
				FFmpegBinary:  cfg.Tools.FFmpeg,
				FFprobeBinary: cfg.Tools.FFprobe,
				TempDir:       cfg.Paths.TempDir,
				Logger:        logger,
			})

			entries := make([]inspectEntry, 0, len(args))
			failed := 0
			for _, path := range args {
				entry := inspectEntry{Path: path}
				info, err := eng.Probe(cmd.Context(), path)
				if err != nil {
					entry.Error = err.Error()
					if diag, ok := engine.Diagnostic(err); ok && ctx.debug() {
						entry.Error = diag
					}
					failed++
					entries = append(entries, entry)
					continue
				}
				entry.Codec = info.Codec.String()
				entry.BitrateKbp = info.Bitrate
				entry.Seconds = info.Duration.Seconds()
				entry.duration = info.Duration
				entry.Artwork = info.HasVideo
				for _, ch := range info.Chapters {
					entry.Chapters = append(entry.Chapters, ch.Title)
				}
				entries = append(entries, entry)
			}

			if jsonOutput {
				if err := writeJSON(cmd, entries); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderInspectTable(entries))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d %s could not be read", failed, len(args), textutil.Plural(len(args), "file", "files"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func renderInspectTable(entries []inspectEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if e.Error != "" {
			rows = append(rows, []string{filepath.Base(e.Path), "-", "-", "-", "-", "-", "error: " + e.Error})
			continue
		}
		rows = append(rows, []string{
			filepath.Base(e.Path),
			textutil.Upper(e.Codec),
			formatBitrate(e.BitrateKbp),
			textutil.FormatClock(e.duration),
			strconv.Itoa(len(e.Chapters)),
			yesNo(e.Artwork),
			supportNote(e.Codec),
		})
	}
	return renderTable(
		[]string{"File", "Codec", "Bitrate", "Length", "Chapters", "Artwork", "Notes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func supportNote(codec string) string {
	if !audiobook.Codec(codec).IsSupported() {
		return "needs conversion, not supported in m4b"
	}
	return ""
}
