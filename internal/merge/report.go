package merge

import (
	"time"

	"m4bmerge/internal/audiobook"
)

// Reporter receives the user-facing side of a run. Calls come from one
// goroutine at a time.
type Reporter interface {
	// Status replaces the transient status line.
	Status(text string)
	// Progress reports the muxed duration during the merge stage.
	Progress(elapsed, total time.Duration)
	// Info prints a summary line.
	Info(text string)
	// Failure prints one diagnostic. cause carries the underlying error,
	// including any engine output, for verbose display.
	Failure(message string, cause error)
	// Plan receives the dry-run plan.
	Plan(plan Plan)
}

// Confirmer asks whether an existing output may be replaced.
type Confirmer interface {
	ConfirmOverwrite(path string) (bool, error)
}

// Action is what the convert stage does with one input.
type Action string

const (
	ActionKeep    Action = "keep"
	ActionConvert Action = "convert"
)

// PlanItem describes one input in a dry run.
type PlanItem struct {
	Source    audiobook.Source
	Action    Action
	Extension string
}

// Plan is the work a run would do, produced by a dry run.
type Plan struct {
	Output       string
	OutputExists bool
	Target       audiobook.Target
	Items        []PlanItem
	Chapters     []audiobook.TimelineChapter
	Tags         map[string]string
	Duration     time.Duration
}

// Converts counts the inputs that would be re-encoded.
func (p Plan) Converts() int {
	n := 0
	for _, item := range p.Items {
		if item.Action == ActionConvert {
			n++
		}
	}
	return n
}

type nopReporter struct{}

func (nopReporter) Status(string)                         {}
func (nopReporter) Progress(time.Duration, time.Duration) {}
func (nopReporter) Info(string)                           {}
func (nopReporter) Failure(string, error)                 {}
func (nopReporter) Plan(Plan)                             {}
