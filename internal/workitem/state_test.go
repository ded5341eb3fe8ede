package workitem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklist/internal/workitem"
)

func TestParseState(t *testing.T) {
	cases := map[string]workitem.ProcedureStepState{
		"SCHEDULED":   workitem.StateScheduled,
		"in progress": workitem.StateInProgress,
		"InProgress":  workitem.StateInProgress,
		"in_progress": workitem.StateInProgress,
		" canceled ":  workitem.StateCanceled,
		"Completed":   workitem.StateCompleted,
	}
	for in, want := range cases {
		got, err := workitem.ParseState(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := workitem.ParseState("DISCONTINUED")
	assert.Error(t, err)
}

func TestCanTransitionTable(t *testing.T) {
	permitted := map[[2]workitem.ProcedureStepState]bool{
		{workitem.StateScheduled, workitem.StateInProgress}: true,
		{workitem.StateScheduled, workitem.StateCanceled}:   true,
		{workitem.StateInProgress, workitem.StateCompleted}: true,
		{workitem.StateInProgress, workitem.StateCanceled}:  true,
	}
	for _, from := range workitem.States() {
		for _, to := range workitem.States() {
			assert.Equal(t, permitted[[2]workitem.ProcedureStepState{from, to}], workitem.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, workitem.StateCompleted.Terminal())
	assert.False(t, workitem.StateInProgress.Terminal())
}

func TestKindUnknownAndNil(t *testing.T) {
	assert.Equal(t, "", workitem.Kind(nil))
	assert.Equal(t, workitem.KindUnknown, workitem.Kind(assert.AnError))
}
