package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"m4bmerge/internal/merge"
)

// promptConfirmer asks on the terminal before an existing output is
// replaced. The default answer is no; end of input also means no.
type promptConfirmer struct {
	in       *bufio.Reader
	out      io.Writer
	colorize bool
}

var _ merge.Confirmer = (*promptConfirmer)(nil)

func newPromptConfirmer(in io.Reader, out io.Writer, colorize bool) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out, colorize: colorize}
}

func (p *promptConfirmer) ConfirmOverwrite(path string) (bool, error) {
	question := fmt.Sprintf("Output file %s already exists, overwrite? [y/n] (n): ", path)
	for {
		fmt.Fprintf(p.out, "%s %s", paint("WARN:", ansiYellow, p.colorize), question)
		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(p.out)
			}
			return false, nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return false, nil
		}
		fmt.Fprintln(p.out, "Please select one of the available options")
	}
}
