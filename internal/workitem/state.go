package workitem

import (
	"fmt"
	"strings"
)

// ProcedureStepState is the domain lifecycle state of a workitem, encoded
// with its DICOM code string.
type ProcedureStepState string

// Procedure step states.
const (
	StateScheduled  ProcedureStepState = "SCHEDULED"
	StateInProgress ProcedureStepState = "IN PROGRESS"
	StateCompleted  ProcedureStepState = "COMPLETED"
	StateCanceled   ProcedureStepState = "CANCELED"
)

var states = []ProcedureStepState{StateScheduled, StateInProgress, StateCompleted, StateCanceled}

// States returns every procedure step state in lifecycle order.
func States() []ProcedureStepState {
	out := make([]ProcedureStepState, len(states))
	copy(out, states)
	return out
}

// ParseState accepts the DICOM code string as well as the spelled-together
// and underscore forms ("InProgress", "in_progress").
func ParseState(value string) (ProcedureStepState, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	if normalized == "INPROGRESS" {
		normalized = string(StateInProgress)
	}
	for _, s := range states {
		if string(s) == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown procedure step state %q", value)
}

// Valid reports whether s is one of the closed set of states.
func (s ProcedureStepState) Valid() bool {
	for _, known := range states {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ProcedureStepState) Terminal() bool {
	return s == StateCompleted || s == StateCanceled
}

func (s ProcedureStepState) String() string {
	return string(s)
}

var transitions = map[ProcedureStepState][]ProcedureStepState{
	StateScheduled:  {StateInProgress, StateCanceled},
	StateInProgress: {StateCompleted, StateCanceled},
}

// CanTransition reports whether from → to is a permitted edge.
func CanTransition(from, to ProcedureStepState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Status is the creation lifecycle marker of a stored workitem.
type Status int

const (
	// StatusCreating marks a workitem whose Add has not been completed.
	StatusCreating Status = 0
	// StatusCreated marks a fully created workitem.
	StatusCreated Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusCreating:
		return "creating"
	case StatusCreated:
		return "created"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
