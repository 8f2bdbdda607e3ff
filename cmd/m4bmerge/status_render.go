package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// fieldKind marks a labelled line in the plan and doctor reports. Tagged kinds
// reuse the reporter's WARN and ERR prefixes.
type fieldKind int

const (
	fieldValue fieldKind = iota
	fieldReady
	fieldAttention
	fieldFailed
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiGrey   = "\x1b[90m"
)

const (
	fieldLabelWidth = 18
	fieldIndent     = "  "
)

func (k fieldKind) tag() string {
	switch k {
	case fieldReady:
		return "OK"
	case fieldAttention:
		return "WARN"
	case fieldFailed:
		return "ERR"
	default:
		return ""
	}
}

func (k fieldKind) color() string {
	switch k {
	case fieldReady:
		return ansiGreen
	case fieldAttention:
		return ansiYellow
	case fieldFailed:
		return ansiRed
	default:
		return ""
	}
}

// renderField formats "label: value". Plain values get no tag; only the label
// is dimmed when colouring.
func renderField(label string, kind fieldKind, value string, colorize bool) string {
	padded := fmt.Sprintf("%-*s", fieldLabelWidth, label+":")
	tag := kind.tag()
	if tag == "" {
		return fieldIndent + paint(padded, ansiGrey, colorize) + " " + value
	}
	text := fmt.Sprintf("[%s]", tag)
	if value != "" {
		text += " " + value
	}
	return paint(fieldIndent+padded+" "+text, kind.color(), colorize)
}

func renderHeading(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	return []string{paint(title, ansiBold, colorize), strings.Repeat("─", len([]rune(title)))}
}

func paint(text, color string, colorize bool) string {
	if !colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
