package merge

import (
	"errors"
	"fmt"
	"strings"

	"m4bmerge/internal/audiobook"
)

// Markers for errors.Is classification of a failed run.
var (
	ErrValidation          = errors.New("validation error")
	ErrOutputAlreadyExists = errors.New("output already exists")
	ErrFileNotFound        = errors.New("file not found")
	ErrProbeFailure        = errors.New("probe failure")
	ErrUnsupportedCodec    = audiobook.ErrUnsupportedCodec
	ErrBitrateRequired     = audiobook.ErrBitrateRequired
	ErrConversionFailure   = errors.New("conversion failure")
	ErrMergeFailure        = errors.New("merge failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrMergeFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "merge failure"
	}
	return strings.Join(parts, ": ")
}

// StageError reports every item that failed in one stage. errors.Is matches
// the marker of any of them.
type StageError struct {
	Stage    string
	Failures []error
}

func (e *StageError) Error() string {
	switch len(e.Failures) {
	case 0:
		return e.Stage + " failed"
	case 1:
		return e.Stage + ": " + e.Failures[0].Error()
	default:
		return fmt.Sprintf("%s: %d failures: %s", e.Stage, len(e.Failures), e.Failures[0].Error())
	}
}

func (e *StageError) Unwrap() []error { return e.Failures }
