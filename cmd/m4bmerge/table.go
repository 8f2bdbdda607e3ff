package main

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"m4bmerge/internal/audiobook"
	"m4bmerge/internal/merge"
	"m4bmerge/internal/textutil"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func formatBitrate(kbps int) string {
	if kbps <= 0 {
		return "-"
	}
	return strconv.Itoa(kbps) + "k"
}

func formatCodec(codec audiobook.Codec) string {
	return textutil.Upper(codec.Canonical().String())
}

// renderPlan prints what a dry run would do: one row per input and the
// resulting chapter table.
func renderPlan(plan merge.Plan, colorize bool) string {
	var b strings.Builder
	for _, line := range renderHeading("Merge plan", colorize) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	target := formatCodec(plan.Target.Codec())
	if bitrate, ok := plan.Target.Bitrate(); ok {
		target += " " + formatBitrate(bitrate)
	}
	b.WriteString(renderField("Output", fieldValue, plan.Output, colorize) + "\n")
	if plan.OutputExists {
		b.WriteString(renderField("Existing output", fieldAttention, "would be replaced", colorize) + "\n")
	}
	b.WriteString(renderField("Target", fieldValue, target, colorize) + "\n")
	b.WriteString(renderField("Total length", fieldValue, textutil.FormatClock(plan.Duration), colorize) + "\n")
	converts := plan.Converts()
	b.WriteString(renderField("Conversions", fieldValue,
		fmt.Sprintf("%d %s", converts, textutil.Plural(converts, "file", "files")), colorize) + "\n\n")

	rows := make([][]string, 0, len(plan.Items))
	for i, item := range plan.Items {
		action := textutil.Title(string(item.Action))
		if item.Action == merge.ActionConvert && item.Extension != "" {
			action += " (" + item.Extension + ")"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			filepath.Base(item.Source.Path()),
			formatCodec(item.Source.Codec()),
			formatBitrate(item.Source.Bitrate()),
			textutil.FormatClock(item.Source.Duration()),
			action,
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "File", "Codec", "Bitrate", "Length", "Action"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	b.WriteString("\n\n")

	chapterRows := make([][]string, 0, len(plan.Chapters))
	for i, ch := range plan.Chapters {
		chapterRows = append(chapterRows, []string{
			strconv.Itoa(i + 1),
			textutil.FormatClock(ch.Start),
			textutil.FormatClock(ch.End),
			ch.Title,
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "Start", "End", "Title"},
		chapterRows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
	))

	if len(plan.Tags) > 0 {
		b.WriteString("\n\n")
		tagRows := make([][]string, 0, len(plan.Tags))
		for _, key := range slices.Sorted(maps.Keys(plan.Tags)) {
			tagRows = append(tagRows, []string{key, plan.Tags[key]})
		}
		b.WriteString(renderTable([]string{"Tag", "Value"}, tagRows, nil))
	}
	return b.String()
}
