package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestFoldContinuesPastSkips(t *testing.T) {
	steps := map[string]Result{
		"a": {Ref: "a", State: StatePersisted},
		"b": {Ref: "b", State: StateSkipped, Err: errors.New("not found")},
		"c": {Ref: "c", State: StateQuarantined},
	}

	var seen []string
	report, err := Fold(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, ev string) Result {
		seen = append(seen, ev)
		return steps[ev]
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, 1, report.Count(StatePersisted))
	assert.Equal(t, 1, report.Count(StateSkipped))
	assert.Equal(t, 1, report.Count(StateQuarantined))
	assert.Len(t, multierr.Errors(report.Errors()), 1)
}

func TestFoldStopsAtAbort(t *testing.T) {
	boom := errors.New("insert failed")

	var seen []string
	report, err := Fold(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, ev string) Result {
		seen = append(seen, ev)
		if ev == "b" {
			return Result{Ref: ev, State: StateAborted, Err: boom}
		}
		return Result{Ref: ev, State: StatePersisted}
	})

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Len(t, report.Results, 2)
	assert.NoError(t, report.Errors(), "fatal errors are not reported as skips")
}

func TestFoldKeepsStepFatalError(t *testing.T) {
	fe := &FatalError{Ref: "x", Err: errors.New("publish failed")}
	_, err := Fold(context.Background(), []int{1}, func(context.Context, int) Result {
		return Result{Ref: "1", State: StateAborted, Err: fe}
	})
	assert.Same(t, fe, err)
}

func TestFoldCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	report, err := Fold(ctx, []int{1, 2}, func(context.Context, int) Result {
		called = true
		return Result{State: StatePersisted}
	})

	assert.False(t, called)
	assert.Empty(t, report.Results)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFoldEmptyBatch(t *testing.T) {
	report, err := Fold(context.Background(), nil, func(context.Context, string) Result {
		t.Fatal("step must not run")
		return Result{}
	})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestAbortsBatchDecisionTable(t *testing.T) {
	for _, s := range []State{StatePersisted, StateQuarantined, StateSkipped, StateDropped, StateNotified} {
		assert.False(t, s.AbortsBatch(), s)
	}
	assert.True(t, StateAborted.AbortsBatch())
}
