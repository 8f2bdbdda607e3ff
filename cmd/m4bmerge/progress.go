package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"m4bmerge/internal/engine"
	"m4bmerge/internal/logging"
	"m4bmerge/internal/merge"
	"m4bmerge/internal/textutil"
)

// consoleReporter renders pipeline events for a terminal. On a TTY status
// text is redrawn in place and the merge gets a progress bar; otherwise
// every status change is its own line and merge progress is sampled.
type consoleReporter struct {
	mu          sync.Mutex
	out         io.Writer
	errOut      io.Writer
	verbose     bool
	interactive bool
	colorize    bool

	statusShown bool
	bar         *progressbar.ProgressBar
	sampler     *logging.ProgressSampler
}

var _ merge.Reporter = (*consoleReporter)(nil)

func newConsoleReporter(out, errOut io.Writer, verbose bool) *consoleReporter {
	interactive := shouldColorize(errOut)
	return &consoleReporter{
		out:         out,
		errOut:      errOut,
		verbose:     verbose,
		interactive: interactive,
		colorize:    shouldColorize(out),
		sampler:     logging.NewProgressSampler(10),
	}
}

func (r *consoleReporter) Status(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishBarLocked()
	if r.interactive {
		fmt.Fprintf(r.errOut, "\r\x1b[K%s", text)
		r.statusShown = true
		return
	}
	fmt.Fprintln(r.errOut, text)
}

func (r *consoleReporter) Progress(elapsed, total time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.interactive {
		if total > 0 && r.sampler.ShouldLog(float64(elapsed)/float64(total)*100, "merge") {
			fmt.Fprintf(r.errOut, "Merging files (%s/%s)\n", textutil.FormatClock(elapsed), textutil.FormatClock(total))
		}
		return
	}
	if r.bar == nil {
		r.clearStatusLocked()
		steps := int64(total / time.Second)
		if steps <= 0 {
			steps = -1
		}
		r.bar = progressbar.NewOptions64(steps,
			progressbar.OptionSetWriter(r.errOut),
			progressbar.OptionSetDescription("Merging files"),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = r.bar.Set64(int64(elapsed / time.Second))
}

func (r *consoleReporter) Info(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishBarLocked()
	r.clearStatusLocked()
	fmt.Fprintf(r.out, "%s %s\n", paint("INFO:", ansiBold, r.colorize), text)
}

func (r *consoleReporter) Failure(message string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishBarLocked()
	r.clearStatusLocked()
	fmt.Fprintf(r.errOut, "%s %s\n", paint("ERR:", ansiRed, r.interactive), message)
	if !r.verbose || cause == nil {
		return
	}
	if diag, ok := engine.Diagnostic(cause); ok {
		fmt.Fprintf(r.errOut, "%s ffmpeg output: %s\n", paint("DBG:", ansiGrey, r.interactive), diag)
		return
	}
	fmt.Fprintf(r.errOut, "%s %v\n", paint("DBG:", ansiGrey, r.interactive), cause)
}

func (r *consoleReporter) Plan(plan merge.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearStatusLocked()
	fmt.Fprintln(r.out, renderPlan(plan, r.colorize))
}

// Finish restores the terminal line after the last status update.
func (r *consoleReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishBarLocked()
	r.clearStatusLocked()
}

func (r *consoleReporter) finishBarLocked() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
	r.sampler.Reset()
}

func (r *consoleReporter) clearStatusLocked() {
	if !r.statusShown {
		return
	}
	fmt.Fprint(r.errOut, "\r\x1b[K")
	r.statusShown = false
}
