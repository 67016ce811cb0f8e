// Package pipeline holds the batch contract shared by both stages: every
// event reaches exactly one terminal State, and only ABORTED stops the
// batch. The caller's transport treats a returned error as "redeliver".
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// State is the terminal state of one event.
type State string

const (
	StatePersisted   State = "PERSISTED"
	StateQuarantined State = "QUARANTINED"
	StateSkipped     State = "SKIPPED"
	StateDropped     State = "DROPPED"
	StateNotified    State = "NOTIFIED"
	StateAborted     State = "ABORTED"
)

// AbortsBatch reports whether reaching s stops the rest of the batch.
func (s State) AbortsBatch() bool {
	return s == StateAborted
}

// Result is the outcome of one event. Err is set for SKIPPED and ABORTED,
// and for QUARANTINED when the original could not be removed.
type Result struct {
	Ref   string
	State State
	Err   error
}

// FatalError aborts a batch. Side effects of events processed before it
// are not rolled back.
type FatalError struct {
	Ref string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error on %s: %v", e.Ref, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err aborted a batch.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Report collects the results of one batch in delivery order.
type Report struct {
	Results []Result
}

// Count returns how many events ended in state s.
func (r Report) Count(s State) int {
	n := 0
	for _, res := range r.Results {
		if res.State == s {
			n++
		}
	}
	return n
}

// Errors combines the non-fatal errors recorded for the batch.
func (r Report) Errors() error {
	var err error
	for _, res := range r.Results {
		if res.Err != nil && !res.State.AbortsBatch() {
			err = multierr.Append(err, fmt.Errorf("%s: %w", res.Ref, res.Err))
		}
	}
	return err
}

// Step processes one event to a terminal state.
type Step[E any] func(ctx context.Context, event E) Result

// Fold runs step over events sequentially. It stops at the first ABORTED
// result, or when ctx is done before an event starts, and returns the
// partial report with a *FatalError.
func Fold[E any](ctx context.Context, events []E, step Step[E]) (Report, error) {
	report := Report{Results: make([]Result, 0, len(events))}

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return report, &FatalError{Ref: fmt.Sprintf("event %d of %d", i+1, len(events)), Err: err}
		}

		res := step(ctx, event)
		report.Results = append(report.Results, res)

		if res.State.AbortsBatch() {
			var fe *FatalError
			if errors.As(res.Err, &fe) {
				return report, fe
			}
			return report, &FatalError{Ref: res.Ref, Err: res.Err}
		}
	}

	return report, nil
}
