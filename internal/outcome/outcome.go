// Package outcome provides a two-armed result carrier for operations that run
// side by side in a batch.
//
// A batch stage collects one Outcome per item instead of returning on the
// first error, so every failure can be reported together once the whole batch
// has finished.
package outcome

// Outcome holds either a value or a user-facing failure message with an
// optional underlying cause. The zero value is a failure with no message.
type Outcome[T any] struct {
	value   T
	ok      bool
	message string
	cause   error
}

// Ok wraps a successful value.
func Ok[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, ok: true}
}

// Err builds a failed outcome. cause may be nil.
func Err[T any](message string, cause error) Outcome[T] {
	return Outcome[T]{message: message, cause: cause}
}

// IsOk reports whether the outcome carries a value.
func (o Outcome[T]) IsOk() bool { return o.ok }

// Value returns the carried value and whether it is present.
func (o Outcome[T]) Value() (T, bool) { return o.value, o.ok }

// Message returns the user-facing diagnostic of a failure.
func (o Outcome[T]) Message() string { return o.message }

// Cause returns the underlying error of a failure, if any.
func (o Outcome[T]) Cause() error { return o.cause }

// Err converts a failure to an error. It returns nil for a success.
func (o Outcome[T]) Err() error {
	if o.ok {
		return nil
	}
	return &Failure{Message: o.message, Cause: o.cause}
}

// Failure is the error form of a failed outcome.
type Failure struct {
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	switch {
	case f.Message != "" && f.Cause != nil:
		return f.Message + ": " + f.Cause.Error()
	case f.Message != "":
		return f.Message
	case f.Cause != nil:
		return f.Cause.Error()
	default:
		return "failed"
	}
}

func (f *Failure) Unwrap() error { return f.Cause }

// Collect splits a batch into its values, in order, and its failures. values
// is nil when any outcome failed.
func Collect[T any](outcomes []Outcome[T]) (values []T, failures []Outcome[T]) {
	for _, o := range outcomes {
		if !o.ok {
			failures = append(failures, o)
		}
	}
	if len(failures) > 0 {
		return nil, failures
	}
	values = make([]T, 0, len(outcomes))
	for _, o := range outcomes {
		values = append(values, o.value)
	}
	return values, nil
}

// Successes returns the values of every successful outcome in order.
func Successes[T any](outcomes []Outcome[T]) []T {
	values := make([]T, 0, len(outcomes))
	for _, o := range outcomes {
		if o.ok {
			values = append(values, o.value)
		}
	}
	return values
}
